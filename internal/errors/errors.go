package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrValidation is returned when input to a core function is malformed.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized is returned for any credential failure. The message is uniform on purpose.
	ErrUnauthorized = errors.New("invalid or expired credentials")
	// ErrForbidden is returned when an authenticated identity lacks the required role or type.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when an expected row is missing.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a create collides with an existing unique value.
	ErrConflict = errors.New("already exists")

	// ErrStorage matches every StorageError.
	ErrStorage = errors.New("storage error")
	// ErrPoolExhausted is returned when no pooled connection became free in time.
	ErrPoolExhausted = errors.New("connection pool exhausted")
	// ErrConnectionLost is returned when the database connection broke.
	ErrConnectionLost = errors.New("database connection lost")
	// ErrConstraintViolation is returned when the database rejected a write on a constraint.
	ErrConstraintViolation = errors.New("constraint violation")
)

// StorageKind classifies a StorageError.
type StorageKind int

const (
	StorageOther StorageKind = iota
	StoragePoolExhausted
	StorageConnectionLost
	StorageConstraintViolation
)

func (k StorageKind) String() string {
	switch k {
	case StoragePoolExhausted:
		return "pool_exhausted"
	case StorageConnectionLost:
		return "connection_lost"
	case StorageConstraintViolation:
		return "constraint_violation"
	default:
		return "other"
	}
}

// StorageError wraps a database failure after any open transaction was rolled back.
type StorageError struct {
	Kind StorageKind
	Op   string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a StorageError against ErrStorage and its kind sentinel.
func (e *StorageError) Is(target error) bool {
	switch target {
	case ErrStorage:
		return true
	case ErrPoolExhausted:
		return e.Kind == StoragePoolExhausted
	case ErrConnectionLost:
		return e.Kind == StorageConnectionLost
	case ErrConstraintViolation:
		return e.Kind == StorageConstraintViolation
	}
	return false
}

// Retryable reports whether the caller may retry the operation.
func (e *StorageError) Retryable() bool {
	return e.Kind == StoragePoolExhausted || e.Kind == StorageConnectionLost
}

// NewStorageError builds a StorageError.
func NewStorageError(kind StorageKind, op string, err error) *StorageError {
	return &StorageError{Kind: kind, Op: op, Err: err}
}

// ForbiddenError carries the roles that would have been accepted.
type ForbiddenError struct {
	Allowed []string
	Actual  string
}

func (e *ForbiddenError) Error() string {
	if len(e.Allowed) == 0 {
		return ErrForbidden.Error()
	}
	return "access denied: requires " + joinRoles(e.Allowed) + " role"
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

func joinRoles(roles []string) string {
	switch len(roles) {
	case 1:
		return roles[0]
	case 2:
		return roles[0] + " or " + roles[1]
	default:
		return strings.Join(roles[:len(roles)-1], ", ") + ", or " + roles[len(roles)-1]
	}
}

// Validation wraps ErrValidation with a reason.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with the missing subject.
func NotFound(subject string) error {
	return fmt.Errorf("%s %w", subject, ErrNotFound)
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
	Details    interface{}
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error:   e.Message,
		Code:    e.Code,
		Details: e.Details,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var forbidden *ForbiddenError
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation):
		return NewHTTPError(http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, ErrUnauthorized):
		return NewHTTPError(http.StatusUnauthorized, ErrUnauthorized.Error(), "UNAUTHORIZED")
	case errors.As(err, &forbidden):
		httpErr := NewHTTPError(http.StatusForbidden, forbidden.Error(), "FORBIDDEN")
		if len(forbidden.Allowed) > 0 {
			httpErr.Details = map[string]interface{}{"required_roles": forbidden.Allowed}
		}
		return httpErr
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, ErrForbidden.Error(), "FORBIDDEN")
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, ErrConflict):
		return NewHTTPError(http.StatusConflict, err.Error(), "CONFLICT")
	case errors.Is(err, ErrPoolExhausted):
		return NewHTTPError(http.StatusServiceUnavailable, "database busy, retry later", "POOL_EXHAUSTED")
	case errors.Is(err, ErrConnectionLost):
		return NewHTTPError(http.StatusServiceUnavailable, "database unavailable", "DATABASE_UNAVAILABLE")
	case errors.Is(err, ErrConstraintViolation):
		return NewHTTPError(http.StatusConflict, "request conflicts with existing data", "CONSTRAINT_VIOLATION")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
