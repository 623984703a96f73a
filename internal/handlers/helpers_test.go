package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/abrezinsky/scoretally/internal/auth"
	"github.com/abrezinsky/scoretally/internal/handlers"
	"github.com/abrezinsky/scoretally/internal/logger"
	"github.com/abrezinsky/scoretally/internal/repository"
	"github.com/abrezinsky/scoretally/internal/repository/mock"
	"github.com/abrezinsky/scoretally/internal/services"
	"github.com/abrezinsky/scoretally/internal/testutil"
)

const adminPassword = "admin-pass"

type testSetup struct {
	t        *testing.T
	repo     repository.FullRepository
	fx       testutil.Fixture
	sessions *auth.Store
	log      *logger.SlogLogger
	router   http.Handler
}

func newTestSetup(t *testing.T) *testSetup {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	return build(t, repo, testutil.Seed(t, repo))
}

// newMockSetup wraps a seeded repository for error injection
func newMockSetup(t *testing.T) (*testSetup, *mock.Repository) {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	fx := testutil.Seed(t, repo)
	m := mock.NewRepository(repo)
	return build(t, m, fx), m
}

func build(t *testing.T, repo repository.FullRepository, fx testutil.Fixture) *testSetup {
	log := logger.Discard()
	events := services.NewEventService(log, repo, "http://scores.local")
	events.SetPasswordCost(bcrypt.MinCost)
	sessions := auth.NewStore(time.Hour)

	h := handlers.New(handlers.Services{
		Session:     services.NewSessionService(log, repo, adminPassword),
		Scoring:     services.NewScoringService(log, repo, nil),
		Submission:  services.NewSubmissionService(log, repo, nil),
		Tabulation:  services.NewTabulationService(log, repo, nil),
		Permissions: services.NewPermissionService(log, repo),
		Events:      events,
	}, sessions, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# metrics\n"))
	}), log)

	return &testSetup{t: t, repo: repo, fx: fx, sessions: sessions, log: log, router: h.Router()}
}

// cookie starts a session directly in the store
func (s *testSetup) cookie(role services.Role, username string) *http.Cookie {
	return &http.Cookie{Name: auth.CookieName, Value: s.sessions.Create(string(role), username)}
}

func (s *testSetup) judge() *http.Cookie     { return s.cookie(services.RoleJudge, "judge1") }
func (s *testSetup) tabulator() *http.Cookie { return s.cookie(services.RoleTabulator, "tab") }
func (s *testSetup) admin() *http.Cookie     { return s.cookie(services.RoleAdmin, services.AdminUsername) }

// do sends a request with an optional JSON body and cookie
func (s *testSetup) do(method, path string, body any, c *http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				s.t.Fatalf("encode body: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c != nil {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rec, status)
	apiErr := decode[handlers.APIError](t, rec)
	if apiErr.Code != code {
		t.Errorf("expected code %s, got %s (%s)", code, apiErr.Code, apiErr.Message)
	}
}
