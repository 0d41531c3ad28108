package handler_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"clinic/internal/auth"
	"clinic/internal/model"
	"clinic/internal/service"
)

// MockAuthService is a mock implementation of service.AuthService.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, in service.RegisterInput) (*model.PatientIdentity, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PatientIdentity), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string, ttl time.Duration) (*auth.LoginResult, error) {
	args := m.Called(ctx, email, password, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.LoginResult), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockAuthService) LogoutAll(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockBranchService is a mock implementation of service.BranchService.
type MockBranchService struct {
	mock.Mock
}

func (m *MockBranchService) List(ctx context.Context) ([]model.Branch, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Branch), args.Error(1)
}

func (m *MockBranchService) Create(ctx context.Context, in service.CreateBranchInput) (*model.Branch, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Branch), args.Error(1)
}

func (m *MockBranchService) DoctorCount(ctx context.Context, branchID uint) (int64, error) {
	args := m.Called(ctx, branchID)
	return args.Get(0).(int64), args.Error(1)
}

// MockDoctorService is a mock implementation of service.DoctorService.
type MockDoctorService struct {
	mock.Mock
}

func (m *MockDoctorService) Schedule(ctx context.Context, doctorID uint, date string) (*model.DoctorSchedule, error) {
	args := m.Called(ctx, doctorID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DoctorSchedule), args.Error(1)
}

// MockAppointmentService is a mock implementation of service.AppointmentService.
type MockAppointmentService struct {
	mock.Mock
}

func (m *MockAppointmentService) Cancel(ctx context.Context, id uint) (*model.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}
