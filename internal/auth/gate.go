package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "clinic/internal/errors"
	"clinic/internal/model"
	"clinic/internal/repository"
)

// LoginResult is what a successful login returns.
type LoginResult struct {
	Token     string      `json:"access_token"`
	TokenType string      `json:"token_type"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

// Gate resolves bearer tokens to identities and enforces role policies.
//
// A token is accepted only if its signature and expiry verify, an active
// session row exists for that exact token, and its subject still exists.
// Every credential failure is reported as ErrUnauthorized; storage failures
// are returned as they are.
type Gate struct {
	users    repository.UserRepository
	sessions SessionStore
	tokens   *JWTService
	tokenTTL time.Duration
	logger   zerolog.Logger
}

// NewGate creates a gate. A non-positive tokenTTL uses DefaultTokenTTL.
func NewGate(users repository.UserRepository, sessions SessionStore, tokens *JWTService, tokenTTL time.Duration, logger zerolog.Logger) *Gate {
	if tokenTTL <= 0 {
		tokenTTL = DefaultTokenTTL
	}
	return &Gate{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnPasswordCheck spends the same time as a real bcrypt comparison so that
// unknown emails cannot be told apart by latency.
func burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = HashPassword("clinic-timing-equaliser")
	})
	VerifyPassword(password, dummyHash)
}

// Login issues a token with the default lifetime.
func (g *Gate) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	return g.LoginWithTTL(ctx, email, password, g.tokenTTL)
}

// LoginWithTTL checks credentials, issues a token valid for ttl and records a
// session for it.
func (g *Gate) LoginWithTTL(ctx context.Context, email, password string, ttl time.Duration) (*LoginResult, error) {
	if ttl <= 0 {
		ttl = g.tokenTTL
	}
	email = NormalizeEmail(email)

	user, err := g.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			burnPasswordCheck(password)
			g.logger.Info().Msg("login rejected")
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	if !VerifyPassword(password, user.PasswordHash) {
		g.logger.Info().Uint("user_id", user.ID).Msg("login rejected")
		return nil, apperrors.ErrUnauthorized
	}

	token, expiresAt, err := g.tokens.Issue(user.ID, ttl)
	if err != nil {
		return nil, err
	}
	if _, err := g.sessions.Create(ctx, user.ID, token, expiresAt); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	g.logger.Debug().Uint("user_id", user.ID).Time("expires_at", expiresAt).Msg("login succeeded")
	return &LoginResult{Token: token, TokenType: "bearer", ExpiresAt: expiresAt, User: user}, nil
}

// Authenticate resolves a token to its user.
func (g *Gate) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := g.tokens.Parse(token)
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, apperrors.ErrUnauthorized
	}

	session, err := g.sessions.GetActive(ctx, token)
	if err != nil {
		return nil, err
	}
	if session == nil || session.UserID != userID {
		return nil, apperrors.ErrUnauthorized
	}

	user, err := g.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

// EmployeeFor merges user with its employee record.
func (g *Gate) EmployeeFor(ctx context.Context, user *model.User) (*model.EmployeeIdentity, error) {
	if user.UserType != model.UserTypeEmployee {
		return nil, &apperrors.ForbiddenError{Allowed: []string{string(model.UserTypeEmployee)}, Actual: string(user.UserType)}
	}
	employee, err := g.users.FindEmployee(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if !employee.IsActive {
		return nil, fmt.Errorf("%w: employee account is deactivated", apperrors.ErrForbidden)
	}
	return &model.EmployeeIdentity{User: *user, Employee: *employee}, nil
}

// PatientFor merges user with its patient record.
func (g *Gate) PatientFor(ctx context.Context, user *model.User) (*model.PatientIdentity, error) {
	if user.UserType != model.UserTypePatient {
		return nil, &apperrors.ForbiddenError{Allowed: []string{string(model.UserTypePatient)}, Actual: string(user.UserType)}
	}
	patient, err := g.users.FindPatient(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if !patient.IsActive {
		return nil, fmt.Errorf("%w: patient account is deactivated", apperrors.ErrForbidden)
	}
	return &model.PatientIdentity{User: *user, Patient: *patient}, nil
}

// DoctorFor merges user with its employee and doctor records.
func (g *Gate) DoctorFor(ctx context.Context, user *model.User) (*model.DoctorIdentity, error) {
	employee, err := g.RoleFor(ctx, user, model.RoleDoctor)
	if err != nil {
		return nil, err
	}
	doctor, err := g.users.FindDoctor(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &model.DoctorIdentity{EmployeeIdentity: *employee, Doctor: *doctor}, nil
}

// RoleFor resolves user as an employee holding one of roles.
func (g *Gate) RoleFor(ctx context.Context, user *model.User, roles ...string) (*model.EmployeeIdentity, error) {
	employee, err := g.EmployeeFor(ctx, user)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if employee.Role == r {
			return employee, nil
		}
	}
	return nil, &apperrors.ForbiddenError{Allowed: roles, Actual: employee.Role}
}

// RequireEmployee authenticates token and requires an active employee.
func (g *Gate) RequireEmployee(ctx context.Context, token string) (*model.EmployeeIdentity, error) {
	user, err := g.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return g.EmployeeFor(ctx, user)
}

// RequirePatient authenticates token and requires an active patient.
func (g *Gate) RequirePatient(ctx context.Context, token string) (*model.PatientIdentity, error) {
	user, err := g.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return g.PatientFor(ctx, user)
}

// RequireDoctor authenticates token and requires an employee with the doctor
// role and a doctor record.
func (g *Gate) RequireDoctor(ctx context.Context, token string) (*model.DoctorIdentity, error) {
	user, err := g.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return g.DoctorFor(ctx, user)
}

// RequireRole authenticates token and requires an employee holding one of roles.
func (g *Gate) RequireRole(ctx context.Context, token string, roles ...string) (*model.EmployeeIdentity, error) {
	user, err := g.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return g.RoleFor(ctx, user, roles...)
}

// Logout revokes the session of token. It fails with ErrNotFound when there is
// no active session to revoke.
func (g *Gate) Logout(ctx context.Context, token string) error {
	ok, err := g.sessions.Invalidate(ctx, token)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound("active session")
	}
	return nil
}

// LogoutAll revokes every active session of a user and returns how many there were.
func (g *Gate) LogoutAll(ctx context.Context, userID uint) (int64, error) {
	n, err := g.sessions.InvalidateAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	g.logger.Info().Uint("user_id", userID).Int64("sessions", n).Msg("sessions revoked")
	return n, nil
}
