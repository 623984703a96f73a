package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNewStore(t *testing.T) {
	if s := NewStore(0); s.TTL() != DefaultTTL {
		t.Errorf("expected default ttl, got %v", s.TTL())
	}
	if s := NewStore(time.Hour); s.TTL() != time.Hour {
		t.Errorf("expected 1h ttl, got %v", s.TTL())
	}
}

func TestGeneratePassword_Format(t *testing.T) {
	pw := GeneratePassword()

	parts := strings.Split(pw, "-")
	if len(parts) != 3 {
		t.Fatalf("expected 3 words separated by dashes, got %d parts: %s", len(parts), pw)
	}

	known := make(map[string]bool, len(passwordWords))
	for _, w := range passwordWords {
		known[w] = true
	}
	for _, part := range parts {
		if !known[part] {
			t.Errorf("word %q not in word list", part)
		}
	}
}

func TestGeneratePassword_Randomness(t *testing.T) {
	passwords := make(map[string]bool)
	for i := 0; i < 10; i++ {
		passwords[GeneratePassword()] = true
	}
	if len(passwords) < 3 {
		t.Errorf("expected more password variety, got only %d unique passwords", len(passwords))
	}
}

func TestCreateAndGet(t *testing.T) {
	s := NewStore(time.Hour)

	token := s.Create("judge", "judge1")
	if len(token) != 64 { // 32 bytes = 64 hex chars
		t.Errorf("expected 64-char token, got %d chars", len(token))
	}

	sess, ok := s.Get(token)
	if !ok {
		t.Fatal("expected session to be valid after create")
	}
	if sess.Role != "judge" || sess.Username != "judge1" {
		t.Errorf("unexpected session: %+v", sess)
	}

	if _, ok := s.Get("nonexistent-token"); ok {
		t.Error("expected false for nonexistent token")
	}
}

func TestDelete_InvalidatesSession(t *testing.T) {
	s := NewStore(time.Hour)
	token := s.Create("admin", "admin")

	s.Delete(token)

	if _, ok := s.Get(token); ok {
		t.Error("expected session to be invalid after delete")
	}
}

func TestGet_ExpiredSession(t *testing.T) {
	s := NewStore(time.Hour)
	now := time.Now()
	s.now = func() time.Time { return now }
	token := s.Create("tabulator", "tab")

	s.now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, ok := s.Get(token); ok {
		t.Error("expected expired session to be invalid")
	}

	s.mu.RLock()
	_, exists := s.sessions[token]
	s.mu.RUnlock()
	if exists {
		t.Error("expected expired session to be removed")
	}
}

func TestSweep(t *testing.T) {
	s := NewStore(time.Hour)
	now := time.Now()
	s.now = func() time.Time { return now }
	s.Create("judge", "old")
	s.now = func() time.Time { return now.Add(30 * time.Minute) }
	fresh := s.Create("judge", "new")

	s.now = func() time.Time { return now.Add(70 * time.Minute) }
	if n := s.Sweep(); n != 1 {
		t.Errorf("expected 1 expired session removed, got %d", n)
	}
	if _, ok := s.Get(fresh); !ok {
		t.Error("fresh session should survive the sweep")
	}
}

func TestFromRequest(t *testing.T) {
	s := NewStore(time.Hour)
	token := s.Create("judge", "judge1")

	tests := []struct {
		name   string
		cookie *http.Cookie
		want   bool
	}{
		{"valid cookie", &http.Cookie{Name: CookieName, Value: token}, true},
		{"no cookie", nil, false},
		{"invalid cookie", &http.Cookie{Name: CookieName, Value: "invalid-token"}, false},
		{"other cookie", &http.Cookie{Name: "other", Value: token}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/session", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			sess, got, ok := s.FromRequest(req)
			if ok != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, ok)
			}
			if ok && (got != token || sess.Username != "judge1") {
				t.Errorf("unexpected session %+v for token %q", sess, got)
			}
		})
	}
}

func TestRequireSession_PutsSessionOnContext(t *testing.T) {
	s := NewStore(time.Hour)
	token := s.Create("judge", "judge1")

	var seen Session
	handler := s.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/judge/contests", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
	if seen.Username != "judge1" || seen.Role != "judge" {
		t.Errorf("session not on context: %+v", seen)
	}
}

func TestRequireSession_Returns401WithoutSession(t *testing.T) {
	s := NewStore(time.Hour)

	handler := s.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/judge/contests", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Error("expected JSON content type")
	}
	if !strings.Contains(rr.Body.String(), "NO_SESSION") {
		t.Errorf("expected NO_SESSION code in body, got: %s", rr.Body.String())
	}
}

func TestFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if _, ok := FromContext(req.Context()); ok {
		t.Error("expected no session on a bare context")
	}
}

func TestSetSessionCookie(t *testing.T) {
	s := NewStore(2 * time.Hour)
	rr := httptest.NewRecorder()

	s.SetSessionCookie(rr, "test-token")

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}

	cookie := cookies[0]
	if cookie.Name != CookieName || cookie.Value != "test-token" {
		t.Errorf("unexpected cookie %s=%s", cookie.Name, cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Error("expected HttpOnly to be true")
	}
	if cookie.Path != "/" {
		t.Errorf("expected path '/', got %s", cookie.Path)
	}
	if cookie.MaxAge != 7200 {
		t.Errorf("expected MaxAge to follow ttl, got %d", cookie.MaxAge)
	}
}

func TestClearSessionCookie(t *testing.T) {
	rr := httptest.NewRecorder()

	ClearSessionCookie(rr)

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].MaxAge != -1 {
		t.Errorf("expected MaxAge -1 (delete), got %d", cookies[0].MaxAge)
	}
}

func TestConcurrentSessionAccess(t *testing.T) {
	s := NewStore(time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token := s.Create("judge", "judge1")
			s.Get(token)
			s.Sweep()
			s.Delete(token)
		}()
	}
	wg.Wait()
}
