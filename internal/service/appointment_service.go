package service

import (
	"context"

	"github.com/rs/zerolog"

	"clinic/internal/model"
	"clinic/internal/repository"
)

// AppointmentService handles appointment operations.
type AppointmentService interface {
	Cancel(ctx context.Context, id uint) (*model.Appointment, error)
}

type appointmentService struct {
	appointments repository.AppointmentRepository
	logger       zerolog.Logger
}

// NewAppointmentService creates a new appointment service.
func NewAppointmentService(appointments repository.AppointmentRepository, logger zerolog.Logger) AppointmentService {
	return &appointmentService{appointments: appointments, logger: logger}
}

// Cancel cancels a scheduled appointment and frees its time slot. Both writes
// commit together or not at all.
func (s *appointmentService) Cancel(ctx context.Context, id uint) (*model.Appointment, error) {
	var cancelled *model.Appointment
	err := s.appointments.WithTransaction(ctx, func(ctx context.Context, repo repository.AppointmentRepository) error {
		appt, err := repo.FindScheduledForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.UpdateStatus(ctx, appt.ID, model.AppointmentStatusCancelled); err != nil {
			return err
		}
		if appt.TimeSlotID != nil {
			if err := repo.ReleaseSlot(ctx, *appt.TimeSlotID); err != nil {
				return err
			}
		}
		appt.Status = model.AppointmentStatusCancelled
		cancelled = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Uint("appointment_id", id).Msg("appointment cancelled")
	return cancelled, nil
}
