package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinic/internal/auth"
	apperrors "clinic/internal/errors"
	"clinic/internal/model"
	"clinic/internal/repository"
)

// ErrUserAlreadyExists is returned when trying to register an existing email.
var ErrUserAlreadyExists = fmt.Errorf("user %w", apperrors.ErrConflict)

// RegisterInput carries a patient self-registration.
type RegisterInput struct {
	Email            string
	Password         string
	FullName         string
	BirthDate        *time.Time
	Gender           string
	Phone            string
	Address          string
	EmergencyContact string
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.PatientIdentity, error)
	Login(ctx context.Context, email, password string, ttl time.Duration) (*auth.LoginResult, error)
	Logout(ctx context.Context, token string) error
	LogoutAll(ctx context.Context, userID uint) (int64, error)
}

type authService struct {
	users repository.UserRepository
	gate  *auth.Gate
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, gate *auth.Gate) AuthService {
	return &authService{users: users, gate: gate}
}

// Register creates a patient account: a users row and a patients row written in
// one transaction.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.PatientIdentity, error) {
	email := auth.NormalizeEmail(in.Email)
	if email == "" {
		return nil, apperrors.Validation("email is required")
	}
	if ok, reason := auth.CheckPasswordStrength(in.Password); !ok {
		return nil, apperrors.Validation("%s", reason)
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrUserAlreadyExists
	}
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		UserType:     model.UserTypePatient,
		FullName:     in.FullName,
		BirthDate:    in.BirthDate,
		Gender:       in.Gender,
	}
	patient := &model.Patient{
		Phone:            in.Phone,
		Address:          in.Address,
		EmergencyContact: in.EmergencyContact,
		IsActive:         true,
	}

	err = s.users.WithTransaction(ctx, func(ctx context.Context, repo repository.UserRepository) error {
		if err := repo.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		patient.UserID = user.ID
		if err := repo.CreatePatient(ctx, patient); err != nil {
			return fmt.Errorf("create patient: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &model.PatientIdentity{User: *user, Patient: *patient}, nil
}

// Login delegates to the gate. A zero ttl uses the configured token lifetime.
func (s *authService) Login(ctx context.Context, email, password string, ttl time.Duration) (*auth.LoginResult, error) {
	if ttl > 0 {
		return s.gate.LoginWithTTL(ctx, email, password, ttl)
	}
	return s.gate.Login(ctx, email, password)
}

// Logout revokes the session of token.
func (s *authService) Logout(ctx context.Context, token string) error {
	return s.gate.Logout(ctx, token)
}

// LogoutAll revokes every session of a user.
func (s *authService) LogoutAll(ctx context.Context, userID uint) (int64, error) {
	return s.gate.LogoutAll(ctx, userID)
}
