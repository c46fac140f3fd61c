// Package apperror defines the domain error taxonomy shared by every layer.
//
// Services return these errors; only the HTTP layer knows which status code
// each sentinel maps to. Callers test for a class of failure with
// errors.Is(err, apperror.ErrNotFound) and recover the human-readable detail
// with errors.As(err, &appErr).
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("Validation Error")
	ErrConflict        = errors.New("conflict")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrUpstream        = errors.New("upstream failure")
	ErrNotImplemented  = errors.New("not implemented")
)

type AppError struct {
	Err     error  // sentinel class
	Message string // Human-readable detail, safe to show to clients
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying failure, logged but never shown
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause so errors.Is matches either.
func (e *AppError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
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

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s with ID '%s' not found.", resource, id),
	}
}

// NotFoundMsg is NotFound with a caller-chosen detail. Visibility filters use
// it so that "hidden" and "missing" read the same to the client.
func NotFoundMsg(message string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: message,
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, field, value string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s with %s %s already exists", resource, field, value),
		Field:   field,
	}
}

func QuotaExceeded(message string) *AppError {
	return &AppError{
		Err:     ErrQuotaExceeded,
		Message: message,
	}
}

// Upstream wraps a failure of an external collaborator (identity provider,
// object storage, database). The cause stays in the chain for logging.
func Upstream(service string, cause error) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: fmt.Sprintf("%s is unavailable", service),
		Cause:   cause,
	}
}

func NotImplemented(message string) *AppError {
	return &AppError{
		Err:     ErrNotImplemented,
		Message: message,
	}
}
