package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"clinic/internal/auth"
	apperrors "clinic/internal/errors"
	"clinic/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest represents a patient registration request.
type RegisterRequest struct {
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required"`
	FullName         string `json:"full_name" validate:"required,max=255"`
	BirthDate        string `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Gender           string `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	Phone            string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Address          string `json:"address,omitempty" validate:"omitempty,max=255"`
	EmergencyContact string `json:"emergency_contact,omitempty" validate:"omitempty,max=255"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required"`
	ExpiresMinutes int    `json:"expires_minutes,omitempty" validate:"omitempty,min=1,max=1440"`
}

func (r *RegisterRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
}

func (r *LoginRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

// Register godoc
// @Summary Register a new patient
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration data"
// @Success 201 {object} model.PatientIdentity
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := service.RegisterInput{
		Email:            req.Email,
		Password:         req.Password,
		FullName:         req.FullName,
		Gender:           req.Gender,
		Phone:            req.Phone,
		Address:          req.Address,
		EmergencyContact: req.EmergencyContact,
	}
	if req.BirthDate != "" {
		d, err := time.Parse(time.DateOnly, req.BirthDate)
		if err != nil {
			return apperrors.Validation("birth_date must be YYYY-MM-DD")
		}
		in.BirthDate = &d
	}

	identity, err := h.authService.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, identity)
}

// Login godoc
// @Summary Login
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} auth.LoginResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ttl := time.Duration(req.ExpiresMinutes) * time.Minute
	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password, ttl)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Logout godoc
// @Summary Revoke the presented token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	token, ok := auth.TokenFrom(c)
	if !ok {
		return apperrors.ErrUnauthorized
	}
	if err := h.authService.Logout(c.Request().Context(), token); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

// LogoutAll godoc
// @Summary Revoke every session of the current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]int64
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/sessions [delete]
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	user, ok := auth.UserFrom(c)
	if !ok {
		return apperrors.ErrUnauthorized
	}
	n, err := h.authService.LogoutAll(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int64{"revoked": n})
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, ok := auth.UserFrom(c)
	if !ok {
		return apperrors.ErrUnauthorized
	}
	return c.JSON(http.StatusOK, user)
}
