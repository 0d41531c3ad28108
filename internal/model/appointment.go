package model

import "time"

// AppointmentStatus represents the status of an appointment.
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// TimeSlot is a bookable window in a doctor's day.
type TimeSlot struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	DoctorID    uint      `json:"doctor_id" gorm:"not null;index"`
	SlotDate    time.Time `json:"slot_date" gorm:"type:date;not null;index"`
	StartTime   string    `json:"start_time" gorm:"type:time;not null"`
	EndTime     string    `json:"end_time" gorm:"type:time;not null"`
	IsAvailable bool      `json:"is_available" gorm:"not null;default:true"`

	// Relations
	Doctor *Doctor `json:"-" gorm:"foreignKey:DoctorID;references:UserID;constraint:OnDelete:CASCADE"`
}

// Appointment books a patient into a doctor's time slot.
type Appointment struct {
	ID         uint              `json:"id" gorm:"primaryKey"`
	PatientID  uint              `json:"patient_id" gorm:"not null;index"`
	DoctorID   uint              `json:"doctor_id" gorm:"not null;index"`
	BranchID   *uint             `json:"branch_id,omitempty" gorm:"index"`
	TimeSlotID *uint             `json:"time_slot_id,omitempty" gorm:"index"`
	Status     AppointmentStatus `json:"status" gorm:"type:varchar(20);not null;default:'scheduled';index"`
	Reason     string            `json:"reason,omitempty" gorm:"type:text"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`

	// Relations
	Patient  *Patient  `json:"-" gorm:"foreignKey:PatientID;references:UserID;constraint:OnDelete:RESTRICT"`
	Doctor   *Doctor   `json:"-" gorm:"foreignKey:DoctorID;references:UserID;constraint:OnDelete:RESTRICT"`
	Branch   *Branch   `json:"-" gorm:"foreignKey:BranchID;constraint:OnDelete:SET NULL"`
	TimeSlot *TimeSlot `json:"-" gorm:"foreignKey:TimeSlotID;constraint:OnDelete:SET NULL"`
}

// ScheduleSlot is one row of a doctor's day as returned by sp_doctor_schedule.
type ScheduleSlot struct {
	SlotID      uint   `json:"slot_id"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable bool   `json:"is_available"`
}

// ScheduledVisit is one booked appointment within a DoctorSchedule.
type ScheduledVisit struct {
	AppointmentID uint   `json:"appointment_id"`
	PatientID     uint   `json:"patient_id"`
	Status        string `json:"status"`
	StartTime     string `json:"start_time"`
}

// DoctorSchedule is a doctor's slots and bookings for one day.
type DoctorSchedule struct {
	DoctorID     uint             `json:"doctor_id"`
	Date         string           `json:"date"`
	Slots        []ScheduleSlot   `json:"slots"`
	Appointments []ScheduledVisit `json:"appointments"`
	Total        int64            `json:"total"`
}
