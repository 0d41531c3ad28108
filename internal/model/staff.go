package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Employee roles.
const (
	RoleAdmin        = "admin"
	RoleManager      = "manager"
	RoleDoctor       = "doctor"
	RoleNurse        = "nurse"
	RoleReceptionist = "receptionist"
)

// Roles lists every valid employee role.
var Roles = []string{RoleAdmin, RoleManager, RoleDoctor, RoleNurse, RoleReceptionist}

// IsValidRole reports whether role is one of Roles.
func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Employee extends a User of type employee.
type Employee struct {
	UserID   uint            `json:"-" gorm:"primaryKey;autoIncrement:false"`
	Role     string          `json:"role" gorm:"type:varchar(20);not null;index"`
	BranchID *uint           `json:"branch_id" gorm:"index"`
	Salary   decimal.Decimal `json:"salary" gorm:"type:decimal(12,2);not null;default:0"`
	HireDate *time.Time      `json:"hire_date,omitempty" gorm:"type:date"`
	IsActive bool            `json:"is_active" gorm:"not null;default:true"`

	// Relations
	User   *User   `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Branch *Branch `json:"-" gorm:"foreignKey:BranchID;constraint:OnDelete:SET NULL"`
}

// Doctor extends an Employee whose role is doctor.
type Doctor struct {
	UserID          uint            `json:"-" gorm:"primaryKey;autoIncrement:false"`
	LicenseNumber   string          `json:"medical_license" gorm:"uniqueIndex;size:50;not null"`
	Specialization  string          `json:"specialization" gorm:"size:100"`
	ConsultationFee decimal.Decimal `json:"consultation_fee" gorm:"type:decimal(10,2);not null;default:0"`

	// Relations
	EmployeeRecord *Employee `json:"-" gorm:"foreignKey:UserID;references:UserID;constraint:OnDelete:CASCADE"`
}

// Patient extends a User of type patient.
type Patient struct {
	UserID           uint   `json:"-" gorm:"primaryKey;autoIncrement:false"`
	BloodType        string `json:"blood_type,omitempty" gorm:"size:5"`
	Phone            string `json:"phone,omitempty" gorm:"size:30"`
	Address          string `json:"address,omitempty" gorm:"size:255"`
	EmergencyContact string `json:"emergency_contact,omitempty" gorm:"size:255"`
	IsActive         bool   `json:"is_active" gorm:"not null;default:true"`

	// Relations
	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Branch is a clinic location.
type Branch struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null;uniqueIndex"`
	Address   string    `json:"address" gorm:"size:255"`
	Phone     string    `json:"phone,omitempty" gorm:"size:30"`
	IsActive  bool      `json:"is_active" gorm:"not null;default:true;index"`
	CreatedAt time.Time `json:"created_at"`
}
