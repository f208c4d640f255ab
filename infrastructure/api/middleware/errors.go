// Package middleware provides HTTP middleware for the API server.
package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/helixml/scholar/application/service"
	"github.com/helixml/scholar/infrastructure/provider"
)

// APIError carries an HTTP status code and the snake_case detail string
// written to the response body. Handlers raise it when the generic
// sentinel mapping is not specific enough, e.g. "abstract_not_found".
type APIError struct {
	code    int
	message string
	cause   error
}

// NewAPIError creates an APIError with the given status code and detail.
func NewAPIError(code int, message string, cause error) *APIError {
	return &APIError{code: code, message: message, cause: cause}
}

// Code returns the HTTP status code.
func (e *APIError) Code() int { return e.code }

// Message returns the response detail string.
func (e *APIError) Message() string { return e.message }

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("api error %d: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("api error %d: %s", e.code, e.message)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error { return e.cause }

// errorResponse is the error envelope every failed request returns.
type errorResponse struct {
	Detail string `json:"detail"`
}

// WriteJSON writes payload as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Default().Error("encode response", "error", err)
	}
}

// WriteError maps err to an HTTP status and writes the error envelope.
// Application sentinels map in this one place; anything unrecognized is
// a 500 with its cause logged, not leaked.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	status, detail := classify(err)

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err)
	} else {
		logger.Warn("request rejected",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"detail", detail)
	}

	WriteJSON(w, status, errorResponse{Detail: detail})
}

func classify(err error) (int, string) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code(), apiErr.Message()
	}

	var provErr *provider.ProviderError
	if errors.As(err, &provErr) && provErr.IsRateLimited() {
		return http.StatusTooManyRequests, "rate_limited"
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrEmptyQuery):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, service.ErrIndexUnavailable):
		return http.StatusServiceUnavailable, "index_unavailable"
	case errors.Is(err, service.ErrClientClosed):
		return http.StatusServiceUnavailable, "client_closed"
	}
	return http.StatusInternalServerError, "internal_error"
}
