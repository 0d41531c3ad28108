package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"clinic/internal/auth"
	apperrors "clinic/internal/errors"
	"clinic/internal/model"
)

func newAuthService(users *MockUserRepository, sessions *MockSessionStore) AuthService {
	gate := auth.NewGate(users, sessions, auth.NewJWTService("test-secret"), 0, zerolog.Nop())
	return NewAuthService(users, gate)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		input         RegisterInput
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name:  "successful registration",
			input: RegisterInput{Email: " New@Clinic.test ", Password: "Secret123", FullName: "New Patient"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "new@clinic.test").Return(nil, apperrors.NotFound("user"))
				m.On("WithTransaction", mock.Anything).Return(nil)
				m.On("CreateUser", mock.Anything, mock.AnythingOfType("*model.User")).
					Run(func(args mock.Arguments) { args.Get(1).(*model.User).ID = 12 }).
					Return(nil)
				m.On("CreatePatient", mock.Anything, mock.MatchedBy(func(p *model.Patient) bool {
					return p.UserID == 12 && p.IsActive
				})).Return(nil)
			},
		},
		{
			name:  "user already exists",
			input: RegisterInput{Email: "existing@clinic.test", Password: "Secret123", FullName: "Existing"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "existing@clinic.test").Return(&model.User{ID: 1}, nil)
			},
			expectedError: apperrors.ErrConflict,
		},
		{
			name:          "weak password",
			input:         RegisterInput{Email: "weak@clinic.test", Password: "password", FullName: "Weak"},
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrValidation,
		},
		{
			name:          "missing email",
			input:         RegisterInput{Email: "  ", Password: "Secret123"},
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.ErrValidation,
		},
		{
			name:  "patient insert fails",
			input: RegisterInput{Email: "race@clinic.test", Password: "Secret123", FullName: "Race"},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByEmail", mock.Anything, "race@clinic.test").Return(nil, apperrors.NotFound("user"))
				m.On("WithTransaction", mock.Anything).Return(nil)
				m.On("CreateUser", mock.Anything, mock.Anything).Return(nil)
				m.On("CreatePatient", mock.Anything, mock.Anything).
					Return(apperrors.NewStorageError(apperrors.StorageConstraintViolation, "exec", errors.New("duplicate")))
			},
			expectedError: apperrors.ErrConstraintViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			tt.setupMock(mockRepo)

			svc := newAuthService(mockRepo, new(MockSessionStore))
			identity, err := svc.Register(context.Background(), tt.input)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, identity)
			} else {
				require.NoError(t, err)
				assert.Equal(t, uint(12), identity.User.ID)
				assert.Equal(t, "new@clinic.test", identity.Email)
				assert.Equal(t, model.UserTypePatient, identity.UserType)
				assert.True(t, auth.VerifyPassword(tt.input.Password, identity.PasswordHash))
			}

			mockRepo.AssertExpectations(t)
		})
	}
}

func TestAuthService_LoginAndLogout(t *testing.T) {
	hash, err := auth.HashPassword("Secret123")
	require.NoError(t, err)

	users := new(MockUserRepository)
	sessions := new(MockSessionStore)
	users.On("FindByEmail", mock.Anything, "alice@clinic.test").Return(&model.User{ID: 1, PasswordHash: hash}, nil)
	sessions.On("Create", mock.Anything, uint(1), mock.Anything, mock.Anything).Return("sid", nil)

	svc := newAuthService(users, sessions)

	res, err := svc.Login(context.Background(), "alice@clinic.test", "Secret123", 10*time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), res.ExpiresAt, 2*time.Second)

	sessions.On("Invalidate", mock.Anything, res.Token).Return(true, nil).Once()
	sessions.On("Invalidate", mock.Anything, res.Token).Return(false, nil).Once()

	assert.NoError(t, svc.Logout(context.Background(), res.Token))
	assert.ErrorIs(t, svc.Logout(context.Background(), res.Token), apperrors.ErrNotFound)

	sessions.On("InvalidateAllForUser", mock.Anything, uint(1)).Return(int64(0), nil)
	n, err := svc.LogoutAll(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, n)
}
