package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"clinic/internal/service"
)

// DoctorHandler handles doctor endpoints.
type DoctorHandler struct {
	doctorService service.DoctorService
	now           func() time.Time
}

// NewDoctorHandler creates a new doctor handler.
func NewDoctorHandler(doctorService service.DoctorService) *DoctorHandler {
	return &DoctorHandler{doctorService: doctorService, now: time.Now}
}

// Schedule godoc
// @Summary A doctor's slots and appointments for one day
// @Tags doctors
// @Produce json
// @Security BearerAuth
// @Param id path int true "Doctor user ID"
// @Param date query string false "Day (YYYY-MM-DD), defaults to today"
// @Success 200 {object} model.DoctorSchedule
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /doctors/{id}/schedule [get]
func (h *DoctorHandler) Schedule(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	date := c.QueryParam("date")
	if date == "" {
		date = h.now().UTC().Format(time.DateOnly)
	}
	schedule, err := h.doctorService.Schedule(c.Request().Context(), id, date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, schedule)
}
