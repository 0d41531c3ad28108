package repository

import (
	"context"
	"time"

	"clinic/internal/db"
	apperrors "clinic/internal/errors"
	"clinic/internal/model"
)

const userColumns = "id, email, password_hash, user_type, full_name, birth_date, gender, national_id, created_at, updated_at"

// UserRepository defines persistence operations for users and their role extensions.
type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindEmployee(ctx context.Context, userID uint) (*model.Employee, error)
	FindPatient(ctx context.Context, userID uint) (*model.Patient, error)
	FindDoctor(ctx context.Context, userID uint) (*model.Doctor, error)
	CreateUser(ctx context.Context, user *model.User) error
	CreatePatient(ctx context.Context, patient *model.Patient) error
	CreateEmployee(ctx context.Context, employee *model.Employee) error
	CreateDoctor(ctx context.Context, doctor *model.Doctor) error
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error
}

type userRepository struct {
	exec *db.Executor
	q    db.Querier
	inTx bool
	now  func() time.Time
}

// NewUserRepository builds a repository on top of the query executor.
func NewUserRepository(exec *db.Executor) UserRepository {
	return &userRepository{exec: exec, q: exec, now: time.Now}
}

// WithTransaction executes fn within one database transaction. Calls made on a
// repository that is already transactional join the open transaction.
func (r *userRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error {
	if r.inTx {
		return fn(ctx, r)
	}
	return r.exec.WithTx(ctx, func(tx *db.Tx) error {
		return fn(ctx, &userRepository{exec: r.exec, q: tx, inTx: true, now: r.now})
	})
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	rec, ok, err := r.q.QueryOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("user")
	}
	return scanUser(rec), nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	rec, ok, err := r.q.QueryOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("user")
	}
	return scanUser(rec), nil
}

func (r *userRepository) FindEmployee(ctx context.Context, userID uint) (*model.Employee, error) {
	rec, ok, err := r.q.QueryOne(ctx,
		"SELECT user_id, role, branch_id, salary, hire_date, is_active FROM employees WHERE user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("employee record")
	}
	return &model.Employee{
		UserID:   rec.Uint("user_id"),
		Role:     rec.String("role"),
		BranchID: rec.NullUint("branch_id"),
		Salary:   rec.Decimal("salary"),
		HireDate: rec.NullTime("hire_date"),
		IsActive: rec.Bool("is_active"),
	}, nil
}

func (r *userRepository) FindPatient(ctx context.Context, userID uint) (*model.Patient, error) {
	rec, ok, err := r.q.QueryOne(ctx,
		"SELECT user_id, blood_type, phone, address, emergency_contact, is_active FROM patients WHERE user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("patient record")
	}
	return &model.Patient{
		UserID:           rec.Uint("user_id"),
		BloodType:        rec.String("blood_type"),
		Phone:            rec.String("phone"),
		Address:          rec.String("address"),
		EmergencyContact: rec.String("emergency_contact"),
		IsActive:         rec.Bool("is_active"),
	}, nil
}

func (r *userRepository) FindDoctor(ctx context.Context, userID uint) (*model.Doctor, error) {
	rec, ok, err := r.q.QueryOne(ctx,
		"SELECT user_id, license_number, specialization, consultation_fee FROM doctors WHERE user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("doctor record")
	}
	return &model.Doctor{
		UserID:          rec.Uint("user_id"),
		LicenseNumber:   rec.String("license_number"),
		Specialization:  rec.String("specialization"),
		ConsultationFee: rec.Decimal("consultation_fee"),
	}, nil
}

// CreateUser inserts the user and sets its ID and timestamps.
func (r *userRepository) CreateUser(ctx context.Context, user *model.User) error {
	now := r.now().UTC()
	res, err := r.q.Exec(ctx,
		`INSERT INTO users (email, password_hash, user_type, full_name, birth_date, gender, national_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Email, user.PasswordHash, string(user.UserType), user.FullName, user.BirthDate, user.Gender, user.NationalID, now, now)
	if err != nil {
		return err
	}
	user.ID = uint(res.LastInsertID)
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *userRepository) CreatePatient(ctx context.Context, patient *model.Patient) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO patients (user_id, blood_type, phone, address, emergency_contact, is_active)
		VALUES (?, ?, ?, ?, ?, ?)`,
		patient.UserID, patient.BloodType, patient.Phone, patient.Address, patient.EmergencyContact, patient.IsActive)
	return err
}

func (r *userRepository) CreateEmployee(ctx context.Context, employee *model.Employee) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO employees (user_id, role, branch_id, salary, hire_date, is_active)
		VALUES (?, ?, ?, ?, ?, ?)`,
		employee.UserID, employee.Role, employee.BranchID, employee.Salary, employee.HireDate, employee.IsActive)
	return err
}

func (r *userRepository) CreateDoctor(ctx context.Context, doctor *model.Doctor) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO doctors (user_id, license_number, specialization, consultation_fee)
		VALUES (?, ?, ?, ?)`,
		doctor.UserID, doctor.LicenseNumber, doctor.Specialization, doctor.ConsultationFee)
	return err
}

func scanUser(rec db.Record) *model.User {
	u := &model.User{
		ID:           rec.Uint("id"),
		Email:        rec.String("email"),
		PasswordHash: rec.String("password_hash"),
		UserType:     model.UserType(rec.String("user_type")),
		FullName:     rec.String("full_name"),
		BirthDate:    rec.NullTime("birth_date"),
		Gender:       rec.String("gender"),
		CreatedAt:    rec.Time("created_at"),
		UpdatedAt:    rec.Time("updated_at"),
	}
	if !rec.IsNull("national_id") {
		nid := rec.String("national_id")
		u.NationalID = &nid
	}
	return u
}
