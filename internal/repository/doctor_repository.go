package repository

import (
	"context"

	"github.com/spf13/cast"

	"clinic/internal/db"
	"clinic/internal/model"
)

// DoctorRepository reads doctor schedules through stored routines.
type DoctorRepository interface {
	Schedule(ctx context.Context, doctorID uint, date string) (*model.DoctorSchedule, error)
}

type doctorRepository struct {
	exec *db.Executor
}

// NewDoctorRepository creates a new doctor repository.
func NewDoctorRepository(exec *db.Executor) DoctorRepository {
	return &doctorRepository{exec: exec}
}

// Schedule calls sp_doctor_schedule. The procedure returns the day's slots and
// then its appointments; rows are told apart by their columns.
func (r *doctorRepository) Schedule(ctx context.Context, doctorID uint, date string) (*model.DoctorSchedule, error) {
	rows, out, err := r.exec.ExecuteStoredProcedure(ctx, "sp_doctor_schedule", doctorID, date, db.Out("total"))
	if err != nil {
		return nil, err
	}

	schedule := &model.DoctorSchedule{
		DoctorID:     doctorID,
		Date:         date,
		Slots:        []model.ScheduleSlot{},
		Appointments: []model.ScheduledVisit{},
		Total:        cast.ToInt64(out["total"]),
	}
	for _, rec := range rows {
		if rec.Has("appointment_id") {
			schedule.Appointments = append(schedule.Appointments, model.ScheduledVisit{
				AppointmentID: rec.Uint("appointment_id"),
				PatientID:     rec.Uint("patient_id"),
				Status:        rec.String("status"),
				StartTime:     rec.String("start_time"),
			})
			continue
		}
		schedule.Slots = append(schedule.Slots, model.ScheduleSlot{
			SlotID:      rec.Uint("slot_id"),
			StartTime:   rec.String("start_time"),
			EndTime:     rec.String("end_time"),
			IsAvailable: rec.Bool("is_available"),
		})
	}
	return schedule, nil
}
