package handlers

import (
	"context"
	"net/http"
	"slices"

	"github.com/abrezinsky/scoretally/internal/auth"
	"github.com/abrezinsky/scoretally/internal/services"
)

type principalKey struct{}

// principalFrom returns the principal placed on the request by requireRole
func principalFrom(r *http.Request) *services.Principal {
	p, _ := r.Context().Value(principalKey{}).(*services.Principal)
	return p
}

// requireRole resolves the session's principal on every request and lets
// the request through only for the listed roles. It must run after
// auth.Store.RequireSession.
func (h *Handlers) requireRole(roles ...services.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := auth.FromContext(r.Context())
			if !ok {
				h.respondError(w, r, services.ErrNoSession)
				return
			}
			p, err := h.Session.ResolvePrincipal(r.Context(), services.Role(sess.Role), sess.Username)
			if err != nil {
				h.respondError(w, r, err)
				return
			}
			if !slices.Contains(roles, p.Role) {
				h.respondError(w, r, Forbidden("role "+string(p.Role)+" may not use this endpoint"))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, p)))
		})
	}
}

// requireActiveEvent rejects requests whose principal belongs to an event
// that is no longer active. It must run after requireRole.
func (h *Handlers) requireActiveEvent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.Session.RequireActiveEvent(r.Context(), principalFrom(r).EventID); err != nil {
			h.respondError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleLogin checks credentials and starts a cookie session
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	p, err := h.Session.AuthenticateRole(r.Context(), req.Role, req.Username, req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	token := h.Sessions.Create(string(p.Role), p.Username)
	h.Sessions.SetSessionCookie(w, token)
	respondOK(w, p)
}

// handleLogout ends the session, if any
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		h.Sessions.Delete(cookie.Value)
	}
	auth.ClearSessionCookie(w)
	respondDeleted(w)
}

// handleSession returns the principal of the current session
func (h *Handlers) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())
	p, err := h.Session.ResolvePrincipal(r.Context(), services.Role(sess.Role), sess.Username)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, p)
}
