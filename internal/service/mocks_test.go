package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"clinic/internal/model"
	"clinic/internal/repository"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindEmployee(ctx context.Context, userID uint) (*model.Employee, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Employee), args.Error(1)
}

func (m *MockUserRepository) FindPatient(ctx context.Context, userID uint) (*model.Patient, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Patient), args.Error(1)
}

func (m *MockUserRepository) FindDoctor(ctx context.Context, userID uint) (*model.Doctor, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Doctor), args.Error(1)
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) CreatePatient(ctx context.Context, patient *model.Patient) error {
	args := m.Called(ctx, patient)
	return args.Error(0)
}

func (m *MockUserRepository) CreateEmployee(ctx context.Context, employee *model.Employee) error {
	args := m.Called(ctx, employee)
	return args.Error(0)
}

func (m *MockUserRepository) CreateDoctor(ctx context.Context, doctor *model.Doctor) error {
	args := m.Called(ctx, doctor)
	return args.Error(0)
}

// WithTransaction runs fn against the mock itself; the returned error is fn's
// unless the expectation overrides it.
func (m *MockUserRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.UserRepository) error) error {
	args := m.Called(ctx)
	if err := fn(ctx, m); err != nil {
		return err
	}
	return args.Error(0)
}

// MockSessionStore is a mock implementation of auth.SessionStore.
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, userID uint, token string, expiresAt time.Time) (string, error) {
	args := m.Called(ctx, userID, token, expiresAt)
	return args.String(0), args.Error(1)
}

func (m *MockSessionStore) GetActive(ctx context.Context, token string) (*model.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *MockSessionStore) Invalidate(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionStore) InvalidateAllForUser(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockBranchRepository is a mock implementation of BranchRepository.
type MockBranchRepository struct {
	mock.Mock
}

func (m *MockBranchRepository) ListActive(ctx context.Context) ([]model.Branch, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Branch), args.Error(1)
}

func (m *MockBranchRepository) Create(ctx context.Context, branch *model.Branch) error {
	args := m.Called(ctx, branch)
	return args.Error(0)
}

func (m *MockBranchRepository) DoctorCount(ctx context.Context, branchID uint) (int64, error) {
	args := m.Called(ctx, branchID)
	return args.Get(0).(int64), args.Error(1)
}

// MockAppointmentRepository is a mock implementation of AppointmentRepository.
type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) FindScheduledForUpdate(ctx context.Context, id uint) (*model.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) UpdateStatus(ctx context.Context, id uint, status model.AppointmentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockAppointmentRepository) ReleaseSlot(ctx context.Context, slotID uint) error {
	args := m.Called(ctx, slotID)
	return args.Error(0)
}

func (m *MockAppointmentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.AppointmentRepository) error) error {
	args := m.Called(ctx)
	if err := fn(ctx, m); err != nil {
		return err
	}
	return args.Error(0)
}

// MockDoctorRepository is a mock implementation of DoctorRepository.
type MockDoctorRepository struct {
	mock.Mock
}

func (m *MockDoctorRepository) Schedule(ctx context.Context, doctorID uint, date string) (*model.DoctorSchedule, error) {
	args := m.Called(ctx, doctorID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DoctorSchedule), args.Error(1)
}
