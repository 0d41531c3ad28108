package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"clinic/internal/service"
)

// AppointmentHandler handles appointment endpoints.
type AppointmentHandler struct {
	appointmentService service.AppointmentService
}

// NewAppointmentHandler creates a new appointment handler.
func NewAppointmentHandler(appointmentService service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointmentService: appointmentService}
}

// Cancel godoc
// @Summary Cancel a scheduled appointment and free its slot
// @Tags appointments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appointment ID"
// @Success 200 {object} model.Appointment
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /appointments/{id}/cancel [post]
func (h *AppointmentHandler) Cancel(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	appt, err := h.appointmentService.Cancel(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, appt)
}
