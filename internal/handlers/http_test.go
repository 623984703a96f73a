package handlers_test

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/abrezinsky/scoretally/internal/errors"
	"github.com/abrezinsky/scoretally/internal/handlers"
	"github.com/abrezinsky/scoretally/internal/services"
)

func TestAPIError_Error(t *testing.T) {
	err := handlers.NewAPIError(http.StatusBadRequest, "BAD_REQUEST", "test message")

	if err.Error() != "test message" {
		t.Errorf("expected 'test message', got %q", err.Error())
	}
	if err.Code != "BAD_REQUEST" {
		t.Errorf("expected code 'BAD_REQUEST', got %q", err.Code)
	}
}

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", errors.Validation("value out of range"), http.StatusBadRequest, handlers.ErrCodeValidation},
		{"invalid input", errors.InvalidInput("bad yaml"), http.StatusBadRequest, handlers.ErrCodeValidation},
		{"no session", services.ErrNoSession, http.StatusUnauthorized, handlers.ErrCodeNoSession},
		{"identity gone", services.ErrIdentityNotFound, http.StatusUnauthorized, handlers.ErrCodeIdentityNotFound},
		{"event gone", services.ErrEventNotFound, http.StatusUnauthorized, handlers.ErrCodeEventNotFound},
		{"bad credentials", services.ErrInvalidCredentials, http.StatusUnauthorized, handlers.ErrCodeInvalidCredentials},
		{"forbidden", services.ErrNoAccess, http.StatusForbidden, handlers.ErrCodeForbidden},
		{"not found", services.ErrContestNotFound, http.StatusNotFound, handlers.ErrCodeNotFound},
		{"event inactive", services.ErrEventInactive, http.StatusConflict, handlers.ErrCodeEventInactive},
		{"other conflict", errors.Conflict("event code already exists"), http.StatusConflict, handlers.ErrCodeConflict},
		{"store", errors.Store(fmt.Errorf("disk I/O error"), "failed to save score"), http.StatusInternalServerError, handlers.ErrCodeStore},
		{"wrapped sentinel", fmt.Errorf("outer: %w", services.ErrEventInactive), http.StatusConflict, handlers.ErrCodeEventInactive},
		{"configuration", errors.Configuration(fmt.Errorf("x"), "bad config"), http.StatusInternalServerError, handlers.ErrCodeInternalServer},
		{"plain error", stderrors.New("boom"), http.StatusInternalServerError, handlers.ErrCodeInternalServer},
		{"api error passes through", handlers.Forbidden("nope"), http.StatusForbidden, handlers.ErrCodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := handlers.ToAPIError(tt.err)
			if apiErr.Status != tt.status || apiErr.Code != tt.code {
				t.Errorf("expected %d %s, got %d %s", tt.status, tt.code, apiErr.Status, apiErr.Code)
			}
		})
	}
}

func TestToAPIError_StoreKeepsMessage(t *testing.T) {
	apiErr := handlers.ToAPIError(errors.Store(fmt.Errorf("database is locked"), "failed to save score"))
	if apiErr.Message != "failed to save score: database is locked" {
		t.Errorf("store message should carry the cause, got %q", apiErr.Message)
	}
	internal := handlers.ToAPIError(stderrors.New("secret detail"))
	if internal.Message != "Internal server error" {
		t.Errorf("internal errors must not leak detail, got %q", internal.Message)
	}
}

func TestRawScore_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *string
		wantErr bool
	}{
		{"number", `{"value": 87.5}`, strp("87.5"), false},
		{"integer", `{"value": 40}`, strp("40"), false},
		{"string", `{"value": "12"}`, strp("12"), false},
		{"empty string", `{"value": ""}`, strp(""), false},
		{"null", `{"value": null}`, nil, false},
		{"missing", `{}`, nil, false},
		{"bool", `{"value": true}`, nil, true},
		{"object", `{"value": {}}`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req handlers.SaveScoreRequest
			err := json.Unmarshal([]byte(tt.input), &req)
			if tt.wantErr {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := req.Value.Value
			if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
				t.Errorf("expected %v, got %v", deref(tt.want), deref(got))
			}
		})
	}
}

func strp(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestDecodeJSON_Errors(t *testing.T) {
	s := newTestSetup(t)

	rec := s.do(http.MethodPut, "/api/judge/scores", "", s.judge())
	expectError(t, rec, http.StatusBadRequest, handlers.ErrCodeValidation)

	rec = s.do(http.MethodPut, "/api/judge/scores", "{invalid}", s.judge())
	expectError(t, rec, http.StatusBadRequest, handlers.ErrCodeValidation)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestSetup(t)

	rec := s.do(http.MethodGet, "/healthz", nil, nil)
	expectStatus(t, rec, http.StatusOK)
	if decode[handlers.HealthResponse](t, rec).Status != "ok" {
		t.Errorf("unexpected health body: %s", rec.Body.String())
	}

	rec = s.do(http.MethodGet, "/metrics", nil, nil)
	expectStatus(t, rec, http.StatusOK)

	// No realtime handler configured
	rec = s.do(http.MethodGet, "/ws?contest_id=1", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected /ws to be unmounted, got %d", rec.Code)
	}
}
