package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/abrezinsky/scoretally/internal/handlers"
	"github.com/abrezinsky/scoretally/internal/models"
)

const harvestYAML = `
event:
  name: Harvest Fair
  code: HARVEST
  year: 2026
divisions: [Open]
contests:
  - name: Baking
    scoring_type: percentage
    criteria:
      - {name: Taste, weight: 70}
      - {name: Look, weight: 30}
    participants:
      - {number: "1", full_name: Pat Doe, division: Open}
judges:
  - {username: baker1, password: crumbs, role: judge}
`

func (s *testSetup) importBundle(body, contentType string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/import", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(s.admin())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func TestImportAndActivate(t *testing.T) {
	s := newTestSetup(t)

	rec := s.importBundle(harvestYAML, "application/x-yaml")
	expectStatus(t, rec, http.StatusCreated)
	event := decode[models.Event](t, rec)
	if event.Code != "HARVEST" || event.Active {
		t.Fatalf("unexpected event: %+v", event)
	}

	rec = s.importBundle(harvestYAML, "application/x-yaml")
	expectError(t, rec, http.StatusConflict, handlers.ErrCodeConflict)

	rec = s.importBundle("", "application/x-yaml")
	expectError(t, rec, http.StatusBadRequest, handlers.ErrCodeValidation)

	rec = s.importBundle("{broken", "application/json")
	expectError(t, rec, http.StatusBadRequest, handlers.ErrCodeValidation)

	rec = s.do(http.MethodPost, "/api/admin/events/"+itoa(event.ID)+"/activate", nil, s.admin())
	expectStatus(t, rec, http.StatusOK)

	rec = s.do(http.MethodGet, "/api/admin/events", nil, s.admin())
	expectStatus(t, rec, http.StatusOK)
	for _, e := range decode[[]models.Event](t, rec) {
		if e.Active != (e.ID == event.ID) {
			t.Errorf("event %s: unexpected active state %v", e.Code, e.Active)
		}
	}

	// The imported judge can log in; the old event's judges are now inactive
	rec = s.do(http.MethodPost, "/api/auth/login", `{"role":"judge","username":"baker1","password":"crumbs"}`, nil)
	expectStatus(t, rec, http.StatusOK)
	rec = s.do(http.MethodGet, "/api/judge/contests", nil, s.judge())
	expectError(t, rec, http.StatusConflict, handlers.ErrCodeEventInactive)

	rec = s.do(http.MethodPost, "/api/admin/events/9999/activate", nil, s.admin())
	expectError(t, rec, http.StatusNotFound, handlers.ErrCodeNotFound)
}

func TestAwardEndpoints(t *testing.T) {
	s := newTestSetup(t)
	awards := "/api/admin/events/" + itoa(s.fx.Event.ID) + "/awards"

	rec := s.do(http.MethodGet, awards, nil, s.admin())
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]models.Award](t, rec); len(got) != 3 {
		t.Fatalf("expected 3 awards, got %d", len(got))
	}

	rec = s.do(http.MethodPost, "/api/admin/awards", models.Award{
		ID: 77, EventID: s.fx.Event.ID, Name: "Best Singer", Type: models.AwardCriteria,
		CriteriaIDs: models.IDList{s.fx.TalentCriteria[0].ID}, Active: true,
	}, s.admin())
	expectStatus(t, rec, http.StatusCreated)
	created := decode[models.Award](t, rec)
	if created.ID == 0 || created.ID == 77 || created.Name != "Best Singer" {
		t.Fatalf("unexpected created award: %+v", created)
	}

	created.Name = "Best Vocalist"
	created.Active = false
	rec = s.do(http.MethodPut, "/api/admin/awards/"+itoa(created.ID), created, s.admin())
	expectStatus(t, rec, http.StatusOK)
	if updated := decode[models.Award](t, rec); updated.Name != "Best Vocalist" || updated.Active {
		t.Errorf("unexpected updated award: %+v", updated)
	}

	rec = s.do(http.MethodPut, "/api/admin/awards/9999", created, s.admin())
	expectError(t, rec, http.StatusNotFound, handlers.ErrCodeNotFound)

	rec = s.do(http.MethodPost, "/api/admin/awards", models.Award{EventID: s.fx.Event.ID, Type: models.AwardSpecial}, s.admin())
	expectError(t, rec, http.StatusBadRequest, handlers.ErrCodeValidation)
}

func TestJudgeQREndpoint(t *testing.T) {
	s := newTestSetup(t)

	rec := s.do(http.MethodGet, "/api/admin/judges/"+itoa(s.fx.Judge1.ID)+"/qr", nil, s.admin())
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %s", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Error("expected PNG bytes")
	}

	rec = s.do(http.MethodGet, "/api/admin/judges/9999/qr", nil, s.admin())
	expectError(t, rec, http.StatusNotFound, handlers.ErrCodeNotFound)
}

func TestBaseURLEndpoints(t *testing.T) {
	s := newTestSetup(t)

	rec := s.do(http.MethodGet, "/api/admin/settings/base-url", nil, s.admin())
	expectStatus(t, rec, http.StatusOK)
	if got := decode[handlers.BaseURLResponse](t, rec); got.BaseURL != "http://scores.local" {
		t.Errorf("expected default base url, got %q", got.BaseURL)
	}

	rec = s.do(http.MethodPut, "/api/admin/settings/base-url", handlers.BaseURLRequest{BaseURL: "https://pageant.example.com/"}, s.admin())
	expectStatus(t, rec, http.StatusOK)
	if got := decode[handlers.BaseURLResponse](t, rec); got.BaseURL != "https://pageant.example.com" {
		t.Errorf("expected updated base url, got %q", got.BaseURL)
	}

	rec = s.do(http.MethodPut, "/api/admin/settings/base-url", handlers.BaseURLRequest{BaseURL: "nowhere"}, s.admin())
	expectError(t, rec, http.StatusBadRequest, handlers.ErrCodeValidation)
}

func TestLoggingEndpoints(t *testing.T) {
	s := newTestSetup(t)
	on := true

	tests := []struct {
		name   string
		body   handlers.LoggingRequest
		status int
		want   handlers.LoggingResponse
	}{
		{"debug", handlers.LoggingRequest{Level: "DEBUG"}, http.StatusOK, handlers.LoggingResponse{Level: "debug"}},
		{"http on", handlers.LoggingRequest{HTTP: &on}, http.StatusOK, handlers.LoggingResponse{Level: "debug", HTTP: true}},
		{"warn", handlers.LoggingRequest{Level: "warn"}, http.StatusOK, handlers.LoggingResponse{Level: "warn", HTTP: true}},
		{"bad level", handlers.LoggingRequest{Level: "loud"}, http.StatusBadRequest, handlers.LoggingResponse{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPut, "/api/admin/logging", tt.body, s.admin())
			if tt.status != http.StatusOK {
				expectError(t, rec, tt.status, handlers.ErrCodeValidation)
				return
			}
			expectStatus(t, rec, tt.status)
			if got := decode[handlers.LoggingResponse](t, rec); got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}

	rec := s.do(http.MethodGet, "/api/admin/logging", nil, s.admin())
	expectStatus(t, rec, http.StatusOK)
	if got := decode[handlers.LoggingResponse](t, rec); got.Level != "warn" || !got.HTTP {
		t.Errorf("unexpected logging state: %+v", got)
	}
	if !s.log.IsHTTPLoggingEnabled() {
		t.Error("HTTP logging should be on in the logger itself")
	}
}
