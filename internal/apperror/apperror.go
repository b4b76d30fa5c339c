package apperror

import (
	"errors"
	"net/http"
)

// Error kinds. Every AppError unwraps to exactly one of them.
var (
	ErrValidation     = errors.New("validation error")
	ErrConflict       = errors.New("conflict")
	ErrNotFound       = errors.New("not found")
	ErrAuthentication = errors.New("authentication failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternal       = errors.New("internal error")
)

// AppError is an error that is safe to show to API clients.
type AppError struct {
	Kind    error    // one of the Err* kinds above
	Message string   // human-readable, returned to the client
	Errors  []string // optional per-field details
	Cause   error    // underlying failure, logged but never returned to the client
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Kind
}

// Validation returns a 400 error for missing or malformed input.
func Validation(message string, details ...string) *AppError {
	return &AppError{Kind: ErrValidation, Message: message, Errors: details}
}

// Conflict returns a 409 error for uniqueness violations.
func Conflict(message string) *AppError {
	return &AppError{Kind: ErrConflict, Message: message}
}

// NotFound returns a 404 error.
func NotFound(message string) *AppError {
	return &AppError{Kind: ErrNotFound, Message: message}
}

// Authentication returns a 401 error for bad credentials.
func Authentication(message string) *AppError {
	return &AppError{Kind: ErrAuthentication, Message: message}
}

// Unauthorized returns a 401 error for a missing, invalid or stale token.
func Unauthorized(message string) *AppError {
	return &AppError{Kind: ErrUnauthorized, Message: message}
}

// Internal returns a 500 error. The cause is kept for logging only.
func Internal(message string, cause error) *AppError {
	return &AppError{Kind: ErrInternal, Message: message, Cause: cause}
}

// StatusCode maps err to an HTTP status code. Errors that are not AppErrors map to 500.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAuthentication), errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
