package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API has the same shape:
//
//	{"detail": "Event with ID 'abc' not found.", "status_code": 404}
//
// The frontend reads detail for display and never needs to parse anything
// else; the HTTP status carries the error class.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/photolog/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Detail     string `json:"detail"`
	StatusCode int    `json:"status_code"`
}

// MessageResponse is the body of endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set before the body is written. Once Encode
// writes, later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

// statusFor maps a domain error class to its HTTP status.
//
// WHY HERE AND NOT IN THE SERVICE?
// The service layer should not know about HTTP status codes. This is the
// one place where apperror sentinels become numbers.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrQuotaExceeded):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, apperror.ErrNotImplemented):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a domain error to the appropriate HTTP status and sends it.
//
// errors.As walks the chain, so a service returning
// fmt.Errorf("updating event: %w", apperror.NotFound(...)) still yields the
// AppError's message. Anything that is not an AppError is an internal
// failure: it is logged in full and the client gets a generic message, so
// SQL or file paths never leak.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("unhandled error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Detail:     "Internal server error",
			StatusCode: http.StatusInternalServerError,
		})
		return
	}

	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("upstream failure", slog.String("error", err.Error()))
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, ErrorResponse{
		Detail:     appErr.Message,
		StatusCode: status,
	})
}
