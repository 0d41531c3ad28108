package model

import "time"

// UserType discriminates which extension table holds the rest of a user.
type UserType string

const (
	UserTypePatient  UserType = "patient"
	UserTypeEmployee UserType = "employee"
)

// User represents an authenticated user in the system. Users are never deleted;
// the extension rows carry the active flag.
type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Email        string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string     `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	UserType     UserType   `json:"user_type" gorm:"type:varchar(20);not null;index"`
	FullName     string     `json:"full_name" gorm:"size:255;not null"`
	BirthDate    *time.Time `json:"birth_date,omitempty" gorm:"type:date"`
	Gender       string     `json:"gender,omitempty" gorm:"size:20"`
	NationalID   *string    `json:"national_id,omitempty" gorm:"uniqueIndex;size:50"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
