package router

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"clinic/docs"
	"clinic/internal/auth"
	"clinic/internal/config"
	"clinic/internal/db"
	apperrors "clinic/internal/errors"
	"clinic/internal/handler"
	"clinic/internal/logging"
	"clinic/internal/model"
)

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Auth        *handler.AuthHandler
	Identity    *handler.IdentityHandler
	Branch      *handler.BranchHandler
	Doctor      *handler.DoctorHandler
	Appointment *handler.AppointmentHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger zerolog.Logger,
	gate *auth.Gate,
	pool *db.Pool,
	h Handlers,
) {
	e.HideBanner = true
	e.HidePort = true
	// The API is served directly; forwarded headers are client controlled.
	e.IPExtractor = echo.ExtractIPDirect()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(logger)

	e.Use(middleware.RequestID())
	e.Use(logging.RequestLogger(logger))
	e.Use(logging.Recovery(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderXRequestID},
	}))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if pool != nil {
		e.GET("/healthz/db", db.HealthHandler(pool))
	}
	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login, loginRateLimiter(cfg.LoginRateLimit))

	// Secured routes resolve the bearer token through the gate.
	secured := api.Group("", gate.Middleware())

	secured.GET("/auth/me", h.Auth.Me)
	secured.POST("/auth/logout", h.Auth.Logout)
	secured.DELETE("/auth/sessions", h.Auth.LogoutAll)

	secured.GET("/employees/me", h.Identity.Employee, gate.RequireEmployeeMiddleware())
	secured.GET("/patients/me", h.Identity.Patient, gate.RequirePatientMiddleware())
	secured.GET("/doctors/me", h.Identity.Doctor, gate.RequireDoctorMiddleware())

	secured.GET("/branches", h.Branch.List)
	secured.POST("/branches", h.Branch.Create, gate.RequireRoleMiddleware(model.RoleAdmin, model.RoleManager))
	secured.GET("/branches/:id/doctors/count", h.Branch.DoctorCount, gate.RequireEmployeeMiddleware())

	secured.GET("/doctors/:id/schedule", h.Doctor.Schedule, gate.RequireEmployeeMiddleware())

	secured.POST("/appointments/:id/cancel", h.Appointment.Cancel, gate.RequireRoleMiddleware(
		model.RoleAdmin, model.RoleManager, model.RoleReceptionist, model.RoleDoctor,
	))
}

// loginRateLimiter limits login attempts per client IP. A non-positive
// limit disables it.
func loginRateLimiter(perSecond float64) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:  rate.Limit(perSecond),
			Burst: max(1, int(perSecond)),
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
	})
}

// NewHTTPErrorHandler renders every error as errors.ErrorResponse. Domain
// errors go through MapErrorToHTTP; echo's own errors keep their status.
func NewHTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var httpErr *apperrors.HTTPError
		var echoErr *echo.HTTPError
		if errors.As(err, &echoErr) {
			httpErr = fromEchoError(echoErr)
		} else {
			httpErr = apperrors.MapErrorToHTTP(err)
		}

		if httpErr.StatusCode >= http.StatusInternalServerError {
			logger.Error().Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("path", c.Request().URL.Path).
				Int("status", httpErr.StatusCode).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(httpErr.StatusCode)
			return
		}
		_ = c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
}

func fromEchoError(he *echo.HTTPError) *apperrors.HTTPError {
	msg := http.StatusText(he.Code)
	if s, ok := he.Message.(string); ok && s != "" {
		msg = s
	}
	code := strings.ToUpper(strings.ReplaceAll(http.StatusText(he.Code), " ", "_"))
	if code == "" {
		code = "ERROR"
	}
	return apperrors.NewHTTPError(he.Code, msg, code)
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
