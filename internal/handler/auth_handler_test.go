package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"clinic/internal/auth"
	apperrors "clinic/internal/errors"
	"clinic/internal/handler"
	"clinic/internal/model"
	"clinic/internal/service"
)

func TestAuthHandler_Register(t *testing.T) {
	svc := new(MockAuthService)
	h := handler.NewAuthHandler(svc)

	identity := &model.PatientIdentity{
		User:    model.User{ID: 11, Email: "ana@example.com", UserType: model.UserTypePatient, FullName: "Ana"},
		Patient: model.Patient{UserID: 11, Phone: "555", IsActive: true},
	}
	svc.On("Register", mock.Anything, mock.MatchedBy(func(in service.RegisterInput) bool {
		return in.Email == "ana@example.com" &&
			in.FullName == "Ana" &&
			in.BirthDate != nil && in.BirthDate.Format(time.DateOnly) == "1990-04-02" &&
			in.Phone == "555"
	})).Return(identity, nil)

	rec := call(http.MethodPost, "/auth/register", "/auth/register",
		`{"email":"ana@example.com","password":"Secret123","full_name":"Ana","birth_date":"1990-04-02","phone":"555"}`,
		h.Register)

	require.Equal(t, http.StatusCreated, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(11), body["id"])
	assert.Equal(t, "555", body["phone"])
	assert.Equal(t, true, body["is_active"])
	assert.NotContains(t, body, "password_hash")
	svc.AssertExpectations(t)
}

func TestAuthHandler_Register_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{"missing name", `{"email":"a@b.co","password":"Secret123"}`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad birth date", `{"email":"a@b.co","password":"Secret123","full_name":"A","birth_date":"02/04/1990"}`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad gender", `{"email":"a@b.co","password":"Secret123","full_name":"A","gender":"x"}`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed json", `{"email":`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"duplicate email", `{"email":"a@b.co","password":"Secret123","full_name":"A"}`, service.ErrUserAlreadyExists, http.StatusConflict, "CONFLICT"},
		{"weak password", `{"email":"a@b.co","password":"weak","full_name":"A"}`, apperrors.Validation("Password must be at least 8 characters long"), http.StatusBadRequest, "VALIDATION_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAuthService)
			if tt.serviceErr != nil {
				svc.On("Register", mock.Anything, mock.Anything).Return(nil, tt.serviceErr)
			}

			rec := call(http.MethodPost, "/auth/register", "/auth/register", tt.body, handler.NewAuthHandler(svc).Register)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	expires := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	tests := []struct {
		name    string
		body    string
		wantTTL time.Duration
	}{
		{"default ttl", `{"email":"ana@example.com","password":"Secret123"}`, 0},
		{"custom ttl", `{"email":"ana@example.com","password":"Secret123","expires_minutes":90}`, 90 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockAuthService)
			svc.On("Login", mock.Anything, "ana@example.com", "Secret123", tt.wantTTL).
				Return(&auth.LoginResult{Token: "tok", TokenType: "bearer", ExpiresAt: expires, User: &model.User{ID: 1}}, nil)

			rec := call(http.MethodPost, "/auth/login", "/auth/login", tt.body, handler.NewAuthHandler(svc).Login)

			require.Equal(t, http.StatusOK, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "tok", body["access_token"])
			assert.Equal(t, "bearer", body["token_type"])
			assert.Equal(t, "2026-03-01T12:30:00Z", body["expires_at"])
			svc.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_Login_TrimsEmail(t *testing.T) {
	svc := new(MockAuthService)
	svc.On("Login", mock.Anything, "Ana@Example.com", "Secret123", time.Duration(0)).
		Return(&auth.LoginResult{Token: "tok", TokenType: "bearer", User: &model.User{ID: 1}}, nil)

	rec := call(http.MethodPost, "/auth/login", "/auth/login",
		`{"email":"  Ana@Example.com \t","password":"Secret123"}`, handler.NewAuthHandler(svc).Login)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestAuthHandler_Login_Failures(t *testing.T) {
	t.Run("bad credentials", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Login", mock.Anything, "ana@example.com", "nope", time.Duration(0)).Return(nil, apperrors.ErrUnauthorized)

		rec := call(http.MethodPost, "/auth/login", "/auth/login", `{"email":"ana@example.com","password":"nope"}`,
			handler.NewAuthHandler(svc).Login)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"invalid or expired credentials","code":"UNAUTHORIZED"}`, rec.Body.String())
	})

	t.Run("ttl out of range", func(t *testing.T) {
		svc := new(MockAuthService)

		rec := call(http.MethodPost, "/auth/login", "/auth/login",
			`{"email":"ana@example.com","password":"x","expires_minutes":5000}`, handler.NewAuthHandler(svc).Login)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "expires_minutes (max)")
		svc.AssertNotCalled(t, "Login")
	})

	t.Run("database down", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Login", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperrors.NewStorageError(apperrors.StorageConnectionLost, "query", nil))

		rec := call(http.MethodPost, "/auth/login", "/auth/login", `{"email":"ana@example.com","password":"x"}`,
			handler.NewAuthHandler(svc).Login)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	t.Run("revokes presented token", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Logout", mock.Anything, "tok").Return(nil)

		rec := call(http.MethodPost, "/auth/logout", "/auth/logout", "", handler.NewAuthHandler(svc).Logout, withToken("tok"))

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("no active session", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Logout", mock.Anything, "tok").Return(apperrors.NotFound("active session"))

		rec := call(http.MethodPost, "/auth/logout", "/auth/logout", "", handler.NewAuthHandler(svc).Logout, withToken("tok"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("no token in context", func(t *testing.T) {
		svc := new(MockAuthService)

		rec := call(http.MethodPost, "/auth/logout", "/auth/logout", "", handler.NewAuthHandler(svc).Logout)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		svc.AssertNotCalled(t, "Logout")
	})
}

func TestAuthHandler_LogoutAllAndMe(t *testing.T) {
	svc := new(MockAuthService)
	svc.On("LogoutAll", mock.Anything, uint(4)).Return(int64(3), nil)
	h := handler.NewAuthHandler(svc)
	user := &model.User{ID: 4, Email: "e@x.io", PasswordHash: "$2a$10$hash", UserType: model.UserTypeEmployee}

	rec := call(http.MethodDelete, "/auth/sessions", "/auth/sessions", "", h.LogoutAll, withUser(user))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"revoked":3}`, rec.Body.String())

	rec = call(http.MethodGet, "/auth/me", "/auth/me", "", h.Me, withUser(user))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"e@x.io"`)
	assert.NotContains(t, rec.Body.String(), "hash")

	rec = call(http.MethodGet, "/auth/me", "/auth/me", "", h.Me)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertExpectations(t)
}
