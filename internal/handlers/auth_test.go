package handlers_test

import (
	"net/http"
	"testing"

	"github.com/abrezinsky/scoretally/internal/auth"
	"github.com/abrezinsky/scoretally/internal/handlers"
	"github.com/abrezinsky/scoretally/internal/services"
	"github.com/abrezinsky/scoretally/internal/testutil"
)

func TestLogin(t *testing.T) {
	s := newTestSetup(t)

	tests := []struct {
		name   string
		body   handlers.LoginRequest
		status int
		code   string
	}{
		{"judge", handlers.LoginRequest{Role: services.RoleJudge, Username: "judge1", Password: testutil.Password}, http.StatusOK, ""},
		{"tabulator", handlers.LoginRequest{Role: services.RoleTabulator, Username: "tab", Password: testutil.Password}, http.StatusOK, ""},
		{"admin", handlers.LoginRequest{Role: services.RoleAdmin, Password: adminPassword}, http.StatusOK, ""},
		{"wrong password", handlers.LoginRequest{Role: services.RoleJudge, Username: "judge1", Password: "nope"}, http.StatusUnauthorized, handlers.ErrCodeInvalidCredentials},
		{"unknown role", handlers.LoginRequest{Role: "guest", Username: "judge1", Password: testutil.Password}, http.StatusBadRequest, handlers.ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/auth/login", tt.body, nil)
			if tt.code != "" {
				expectError(t, rec, tt.status, tt.code)
				if len(rec.Result().Cookies()) != 0 {
					t.Error("failed login must not set a cookie")
				}
				return
			}
			expectStatus(t, rec, tt.status)
			p := decode[services.Principal](t, rec)
			if p.Role != tt.body.Role {
				t.Errorf("expected role %s, got %s", tt.body.Role, p.Role)
			}
			cookies := rec.Result().Cookies()
			if len(cookies) != 1 || cookies[0].Name != auth.CookieName {
				t.Fatalf("expected a session cookie, got %v", cookies)
			}
			if _, ok := s.sessions.Get(cookies[0].Value); !ok {
				t.Error("cookie token should be a live session")
			}
		})
	}
}

func TestSessionAndLogout(t *testing.T) {
	s := newTestSetup(t)
	c := s.judge()

	rec := s.do(http.MethodGet, "/api/session", nil, c)
	expectStatus(t, rec, http.StatusOK)
	p := decode[services.Principal](t, rec)
	if p.Username != "judge1" || p.ID != s.fx.Judge1.ID || p.EventID != s.fx.Event.ID {
		t.Errorf("unexpected principal: %+v", p)
	}

	rec = s.do(http.MethodPost, "/api/auth/logout", nil, c)
	expectStatus(t, rec, http.StatusNoContent)

	rec = s.do(http.MethodGet, "/api/session", nil, c)
	expectError(t, rec, http.StatusUnauthorized, handlers.ErrCodeNoSession)
}

func TestIdentityFailures(t *testing.T) {
	s := newTestSetup(t)

	tests := []struct {
		name   string
		cookie *http.Cookie
		code   string
	}{
		{"no cookie", nil, handlers.ErrCodeNoSession},
		{"unknown token", &http.Cookie{Name: auth.CookieName, Value: "forged"}, handlers.ErrCodeNoSession},
		{"judge no longer exists", s.cookie(services.RoleJudge, "ghost"), handlers.ErrCodeIdentityNotFound},
		{"tabulator no longer exists", s.cookie(services.RoleTabulator, "ghost"), handlers.ErrCodeIdentityNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodGet, "/api/judge/contests", nil, tt.cookie)
			expectError(t, rec, http.StatusUnauthorized, tt.code)
		})
	}
}

func TestRoleGates(t *testing.T) {
	s := newTestSetup(t)
	gown := "/api/tabulation/contests/" + itoa(s.fx.Gown.ID)

	tests := []struct {
		name   string
		path   string
		cookie *http.Cookie
		status int
	}{
		{"judge on tabulation", gown, s.judge(), http.StatusForbidden},
		{"tabulator on tabulation", gown, s.tabulator(), http.StatusOK},
		{"admin on tabulation", gown, s.admin(), http.StatusOK},
		{"tabulator on judge api", "/api/judge/contests", s.tabulator(), http.StatusForbidden},
		{"judge on admin api", "/api/admin/events", s.judge(), http.StatusForbidden},
		{"tabulator on admin api", "/api/admin/events", s.tabulator(), http.StatusForbidden},
		{"admin on admin api", "/api/admin/events", s.admin(), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodGet, tt.path, nil, tt.cookie)
			expectStatus(t, rec, tt.status)
		})
	}
}
