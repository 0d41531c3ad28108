package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"clinic/internal/auth"
	apperrors "clinic/internal/errors"
	"clinic/internal/model"
)

// IdentityHandler serves the merged identity resolved by the role guards.
type IdentityHandler struct{}

// NewIdentityHandler creates a new identity handler.
func NewIdentityHandler() *IdentityHandler {
	return &IdentityHandler{}
}

// Employee godoc
// @Summary Current employee
// @Tags identity
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.EmployeeIdentity
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /employees/me [get]
func (h *IdentityHandler) Employee(c echo.Context) error {
	return identityJSON[model.EmployeeIdentity](c)
}

// Patient godoc
// @Summary Current patient
// @Tags identity
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.PatientIdentity
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /patients/me [get]
func (h *IdentityHandler) Patient(c echo.Context) error {
	return identityJSON[model.PatientIdentity](c)
}

// Doctor godoc
// @Summary Current doctor
// @Tags identity
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.DoctorIdentity
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /doctors/me [get]
func (h *IdentityHandler) Doctor(c echo.Context) error {
	return identityJSON[model.DoctorIdentity](c)
}

func identityJSON[T any](c echo.Context) error {
	identity, ok := auth.IdentityFrom[T](c)
	if !ok {
		return apperrors.ErrForbidden
	}
	return c.JSON(http.StatusOK, identity)
}
