package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/helixml/scholar/application/service"
	"github.com/helixml/scholar/infrastructure/provider"
)

func TestAPIError(t *testing.T) {
	err := NewAPIError(http.StatusNotFound, "abstract_not_found", nil)

	if err.Code() != http.StatusNotFound {
		t.Errorf("expected code 404, got %d", err.Code())
	}
	if err.Message() != "abstract_not_found" {
		t.Errorf("expected message abstract_not_found, got %s", err.Message())
	}
	if err.Error() != "api error 404: abstract_not_found" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
	if err.Unwrap() != nil {
		t.Errorf("expected nil cause, got %v", err.Unwrap())
	}
}

func TestAPIErrorWithCause(t *testing.T) {
	cause := errors.New("row missing")
	err := NewAPIError(http.StatusNotFound, "author_not_found", cause)

	if err.Error() != "api error 404: author_not_found: row missing" {
		t.Errorf("unexpected error string: %s", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to match the cause")
	}
}

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{
			name:       "not found sentinel",
			err:        fmt.Errorf("abstract 7: %w", service.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantDetail: "not_found",
		},
		{
			name:       "validation sentinel",
			err:        fmt.Errorf("page size: %w", service.ErrValidation),
			wantStatus: http.StatusBadRequest,
			wantDetail: "validation_error",
		},
		{
			name:       "empty query sentinel",
			err:        service.ErrEmptyQuery,
			wantStatus: http.StatusBadRequest,
			wantDetail: "validation_error",
		},
		{
			name:       "index unavailable sentinel",
			err:        service.ErrIndexUnavailable,
			wantStatus: http.StatusServiceUnavailable,
			wantDetail: "index_unavailable",
		},
		{
			name:       "client closed sentinel",
			err:        service.ErrClientClosed,
			wantStatus: http.StatusServiceUnavailable,
			wantDetail: "client_closed",
		},
		{
			name:       "api error passthrough",
			err:        NewAPIError(http.StatusBadRequest, "confirmation_required", nil),
			wantStatus: http.StatusBadRequest,
			wantDetail: "confirmation_required",
		},
		{
			name:       "wrapped api error",
			err:        fmt.Errorf("patch: %w", NewAPIError(http.StatusBadRequest, "invalid_datetime:published_at", nil)),
			wantStatus: http.StatusBadRequest,
			wantDetail: "invalid_datetime:published_at",
		},
		{
			name:       "rate limited provider error",
			err:        provider.NewProviderError("embed", http.StatusTooManyRequests, "slow down", nil),
			wantStatus: http.StatusTooManyRequests,
			wantDetail: "rate_limited",
		},
		{
			name:       "unknown error",
			err:        errors.New("disk on fire"),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/abstracts", nil)

			WriteError(rec, req, tt.err, nil)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected application/json, got %s", ct)
			}

			var body struct {
				Detail string `json:"detail"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Detail != tt.wantDetail {
				t.Errorf("expected detail %q, got %q", tt.wantDetail, body.Detail)
			}
		})
	}
}

func TestWriteJSONNilPayload(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteJSON(rec, http.StatusNoContent, nil)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", rec.Body.String())
	}
}
