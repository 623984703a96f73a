package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	CookieName = "scoretally_session"
	DefaultTTL = 12 * time.Hour
)

// GeneratedPassword asks the server to generate an admin password at start
const GeneratedPassword = "auto"

// Words for admin password generation
var passwordWords = []string{
	"sash", "crown", "ballot", "judge", "score",
	"tiara", "podium", "ribbon", "medal", "stage",
	"encore", "finale", "gown", "talent", "poise",
	"rose", "gold", "silver", "bronze",
}

// Session is what a cookie token stands for: the role and username the
// principal logged in with. Everything else is re-resolved per request.
type Session struct {
	Role     string
	Username string
	Expires  time.Time
}

// Store holds live sessions in memory
type Store struct {
	ttl      time.Duration
	sessions map[string]Session
	mu       sync.RWMutex
	now      func() time.Time
}

// NewStore creates a session store. A non-positive ttl uses DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:      ttl,
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

// TTL returns the lifetime of new sessions
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// GeneratePassword creates a random 3-word password
func GeneratePassword() string {
	words := make([]string, 3)
	for i := range words {
		words[i] = passwordWords[randomInt(len(passwordWords))]
	}
	return strings.Join(words, "-")
}

// Create starts a session and returns its token
func (s *Store) Create(role, username string) string {
	token := generateToken()
	s.mu.Lock()
	s.sessions[token] = Session{Role: role, Username: username, Expires: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return token
}

// Delete ends a session
func (s *Store) Delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Get returns the session for token if it exists and has not expired
func (s *Store) Get(token string) (Session, bool) {
	s.mu.RLock()
	sess, exists := s.sessions[token]
	s.mu.RUnlock()

	if !exists {
		return Session{}, false
	}

	if s.now().After(sess.Expires) {
		s.Delete(token)
		return Session{}, false
	}

	return sess, true
}

// Sweep removes expired sessions and returns how many were removed
func (s *Store) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for token, sess := range s.sessions {
		if now.After(sess.Expires) {
			delete(s.sessions, token)
			n++
		}
	}
	return n
}

// FromRequest extracts and validates the session cookie on r
func (s *Store) FromRequest(r *http.Request) (Session, string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Session{}, "", false
	}
	sess, ok := s.Get(cookie.Value)
	return sess, cookie.Value, ok
}

type contextKey struct{}

// WithSession returns a copy of ctx carrying sess
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session stored by WithSession
func FromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(Session)
	return sess, ok
}

// RequireSession middleware for API endpoints (returns 401). The session
// is placed on the request context.
func (s *Store) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess, _, ok := s.FromRequest(r); ok {
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"NO_SESSION","error":"no session"}`))
	})
}

// SetSessionCookie sets the session cookie on the response
func (s *Store) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// generateToken creates a random session token
func generateToken() string {
	bytes := make([]byte, 32)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// randomInt returns a random int in [0, max)
func randomInt(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0
	}
	return int(n.Int64())
}
