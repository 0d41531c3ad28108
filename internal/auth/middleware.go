package auth

import (
	"errors"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	apperrors "clinic/internal/errors"
	"clinic/internal/model"
)

// Echo context keys set by the middleware in this file.
const (
	ContextKeyUser     = "user"
	ContextKeyToken    = "token"
	ContextKeyIdentity = "identity"
)

// Middleware returns echo-jwt middleware that extracts the bearer token and
// authenticates it through the gate, so revoked sessions are rejected too.
func (g *Gate) Middleware() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  ContextKeyUser,
		TokenLookup: "header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			user, err := g.Authenticate(c.Request().Context(), token)
			if err != nil {
				return nil, err
			}
			c.Set(ContextKeyToken, token)
			return user, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if errors.Is(err, apperrors.ErrStorage) {
				return err
			}
			return apperrors.ErrUnauthorized
		},
	})
}

// RequireEmployeeMiddleware rejects requests whose user is not an active employee.
func (g *Gate) RequireEmployeeMiddleware() echo.MiddlewareFunc {
	return g.guard(func(c echo.Context, user *model.User) (interface{}, error) {
		return g.EmployeeFor(c.Request().Context(), user)
	})
}

// RequirePatientMiddleware rejects requests whose user is not an active patient.
func (g *Gate) RequirePatientMiddleware() echo.MiddlewareFunc {
	return g.guard(func(c echo.Context, user *model.User) (interface{}, error) {
		return g.PatientFor(c.Request().Context(), user)
	})
}

// RequireDoctorMiddleware rejects requests whose user is not a doctor.
func (g *Gate) RequireDoctorMiddleware() echo.MiddlewareFunc {
	return g.guard(func(c echo.Context, user *model.User) (interface{}, error) {
		return g.DoctorFor(c.Request().Context(), user)
	})
}

// RequireRoleMiddleware rejects requests whose user is not an employee holding
// one of roles.
func (g *Gate) RequireRoleMiddleware(roles ...string) echo.MiddlewareFunc {
	return g.guard(func(c echo.Context, user *model.User) (interface{}, error) {
		return g.RoleFor(c.Request().Context(), user, roles...)
	})
}

func (g *Gate) guard(resolve func(c echo.Context, user *model.User) (interface{}, error)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := UserFrom(c)
			if !ok {
				return apperrors.ErrUnauthorized
			}
			identity, err := resolve(c, user)
			if err != nil {
				return err
			}
			c.Set(ContextKeyIdentity, identity)
			return next(c)
		}
	}
}

// UserFrom returns the authenticated user stored by Middleware.
func UserFrom(c echo.Context) (*model.User, bool) {
	user, ok := c.Get(ContextKeyUser).(*model.User)
	return user, ok && user != nil
}

// TokenFrom returns the bearer token stored by Middleware.
func TokenFrom(c echo.Context) (string, bool) {
	token, ok := c.Get(ContextKeyToken).(string)
	return token, ok && token != ""
}

// IdentityFrom returns the identity stored by a role guard.
func IdentityFrom[T any](c echo.Context) (*T, bool) {
	identity, ok := c.Get(ContextKeyIdentity).(*T)
	return identity, ok && identity != nil
}
