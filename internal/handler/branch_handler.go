package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"clinic/internal/service"
)

// BranchHandler handles branch endpoints.
type BranchHandler struct {
	branchService service.BranchService
}

// NewBranchHandler creates a new branch handler.
func NewBranchHandler(branchService service.BranchService) *BranchHandler {
	return &BranchHandler{branchService: branchService}
}

// CreateBranchRequest represents a branch creation request.
type CreateBranchRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Address string `json:"address" validate:"max=255"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=30"`
}

// List godoc
// @Summary List active branches
// @Tags branches
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Branch
// @Failure 401 {object} errors.ErrorResponse
// @Router /branches [get]
func (h *BranchHandler) List(c echo.Context) error {
	branches, err := h.branchService.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, branches)
}

// Create godoc
// @Summary Create a branch
// @Tags branches
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateBranchRequest true "Branch"
// @Success 201 {object} model.Branch
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /branches [post]
func (h *BranchHandler) Create(c echo.Context) error {
	var req CreateBranchRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	branch, err := h.branchService.Create(c.Request().Context(), service.CreateBranchInput{
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, branch)
}

// DoctorCount godoc
// @Summary Count active doctors at a branch
// @Tags branches
// @Produce json
// @Security BearerAuth
// @Param id path int true "Branch ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errors.ErrorResponse
// @Router /branches/{id}/doctors/count [get]
func (h *BranchHandler) DoctorCount(c echo.Context) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	n, err := h.branchService.DoctorCount(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"branch_id": id, "doctors": n})
}
