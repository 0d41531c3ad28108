package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apperrors "clinic/internal/errors"
)

// normalizer is implemented by requests that clean their fields before
// validation.
type normalizer interface {
	normalize()
}

// bindAndValidate binds the request body into req and runs struct validation.
// Failures come back as validation errors naming the offending fields.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.Validation("invalid request body")
	}
	if n, ok := req.(normalizer); ok {
		n.normalize()
	}
	if err := c.Validate(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, strings.ToLower(fe.Field())+" ("+fe.Tag()+")")
			}
			return apperrors.Validation("invalid fields: %s", strings.Join(fields, ", "))
		}
		return apperrors.Validation("%s", err.Error())
	}
	return nil
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("%s must be a positive integer", name)
	}
	return uint(id), nil
}
