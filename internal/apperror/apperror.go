package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrAuth       = errors.New("authentication failed")
	ErrUpstream   = errors.New("upstream error")
	ErrForbidden  = errors.New("forbidden")
)

type AppError struct {
	Err     error  // sentinel category (ErrValidation, ErrAuth, ...)
	Message string // Human-readable error message, safe to return to clients
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Auth returns an AppError for failed credential or token checks.
// The message must be generic ("Invalid credentials", "Invalid token") —
// it is shown to clients and must not reveal which check failed.
func Auth(message string) *AppError {
	return &AppError{
		Err:     ErrAuth,
		Message: message,
	}
}

// Upstream returns an AppError for a failure reported by an external
// collaborator (identity provider). The upstream message is passed through
// when available so clients can see what the provider objected to.
func Upstream(message string) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}
