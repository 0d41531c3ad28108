package repository

import (
	"context"
	"time"

	"clinic/internal/db"
	apperrors "clinic/internal/errors"
	"clinic/internal/model"
)

// AppointmentRepository defines persistence operations for appointments.
type AppointmentRepository interface {
	FindScheduledForUpdate(ctx context.Context, id uint) (*model.Appointment, error)
	UpdateStatus(ctx context.Context, id uint, status model.AppointmentStatus) error
	ReleaseSlot(ctx context.Context, slotID uint) error
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo AppointmentRepository) error) error
}

type appointmentRepository struct {
	exec *db.Executor
	q    db.Querier
	inTx bool
	now  func() time.Time
}

// NewAppointmentRepository creates a new appointment repository.
func NewAppointmentRepository(exec *db.Executor) AppointmentRepository {
	return &appointmentRepository{exec: exec, q: exec, now: time.Now}
}

// WithTransaction executes a function within a database transaction.
func (r *appointmentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo AppointmentRepository) error) error {
	if r.inTx {
		return fn(ctx, r)
	}
	return r.exec.WithTx(ctx, func(tx *db.Tx) error {
		return fn(ctx, &appointmentRepository{exec: r.exec, q: tx, inTx: true, now: r.now})
	})
}

// FindScheduledForUpdate loads a scheduled appointment and locks its row until
// the surrounding transaction ends.
func (r *appointmentRepository) FindScheduledForUpdate(ctx context.Context, id uint) (*model.Appointment, error) {
	rec, ok, err := r.q.QueryOne(ctx,
		`SELECT id, patient_id, doctor_id, branch_id, time_slot_id, status, reason, created_at, updated_at
		FROM appointments WHERE id = ? AND status = ? FOR UPDATE`,
		id, string(model.AppointmentStatusScheduled))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("scheduled appointment")
	}
	return &model.Appointment{
		ID:         rec.Uint("id"),
		PatientID:  rec.Uint("patient_id"),
		DoctorID:   rec.Uint("doctor_id"),
		BranchID:   rec.NullUint("branch_id"),
		TimeSlotID: rec.NullUint("time_slot_id"),
		Status:     model.AppointmentStatus(rec.String("status")),
		Reason:     rec.String("reason"),
		CreatedAt:  rec.Time("created_at"),
		UpdatedAt:  rec.Time("updated_at"),
	}, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uint, status model.AppointmentStatus) error {
	res, err := r.q.Exec(ctx,
		"UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?",
		string(status), r.now().UTC(), id)
	if err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("appointment")
	}
	return nil
}

// ReleaseSlot marks a time slot bookable again.
func (r *appointmentRepository) ReleaseSlot(ctx context.Context, slotID uint) error {
	_, err := r.q.Exec(ctx, "UPDATE time_slots SET is_available = TRUE WHERE id = ?", slotID)
	return err
}
