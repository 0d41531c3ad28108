package model

// EmployeeIdentity is a user merged with its employee extension.
type EmployeeIdentity struct {
	User
	Employee
}

// PatientIdentity is a user merged with its patient extension.
type PatientIdentity struct {
	User
	Patient
}

// DoctorIdentity is an employee merged with its doctor extension.
type DoctorIdentity struct {
	EmployeeIdentity
	Doctor
}
