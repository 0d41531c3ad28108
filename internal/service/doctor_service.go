package service

import (
	"context"
	"time"

	apperrors "clinic/internal/errors"
	"clinic/internal/model"
	"clinic/internal/repository"
)

// DoctorService handles doctor lookups.
type DoctorService interface {
	Schedule(ctx context.Context, doctorID uint, date string) (*model.DoctorSchedule, error)
}

type doctorService struct {
	users   repository.UserRepository
	doctors repository.DoctorRepository
}

// NewDoctorService creates a new doctor service.
func NewDoctorService(users repository.UserRepository, doctors repository.DoctorRepository) DoctorService {
	return &doctorService{users: users, doctors: doctors}
}

// Schedule returns a doctor's slots and appointments for a YYYY-MM-DD date.
func (s *doctorService) Schedule(ctx context.Context, doctorID uint, date string) (*model.DoctorSchedule, error) {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, apperrors.Validation("date must be YYYY-MM-DD")
	}
	if _, err := s.users.FindDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.doctors.Schedule(ctx, doctorID, date)
}
