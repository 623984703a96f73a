package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abrezinsky/scoretally/internal/services"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.log != nil && h.log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)

	// Public
	r.Get("/healthz", h.handleHealth)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}
	if h.Realtime != nil {
		r.Get("/ws", h.Realtime.ServeHTTP)
	}
	r.Post("/api/auth/login", h.handleLogin)
	r.Post("/api/auth/logout", h.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(h.Sessions.RequireSession)

		r.Get("/api/session", h.handleSession)

		// Judges
		r.Group(func(r chi.Router) {
			r.Use(h.requireRole(services.RoleJudge))
			r.Use(h.requireActiveEvent)
			r.Get("/api/judge/contests", h.handleJudgeContests)
			r.Get("/api/judge/contests/{contestID}/scoresheet", h.handleScoresheet)
			r.Put("/api/judge/scores", h.handleSaveScore)
			r.Post("/api/judge/contests/{contestID}/preview", h.handlePreview)
			r.Post("/api/judge/contests/{contestID}/submit", h.handleSubmit)
		})

		// Tabulation and permission overrides
		r.Group(func(r chi.Router) {
			r.Use(h.requireRole(services.RoleTabulator, services.RoleAdmin))
			r.Get("/api/tabulation/contests/{contestID}", h.handleContestRanking)
			r.Get("/api/tabulation/contests/{contestID}/progress", h.handleProgress)
			r.Get("/api/tabulation/awards", h.handleAwardRankings)
			r.Get("/api/tabulation/awards/{awardID}", h.handleAwardRanking)

			r.Put("/api/permissions/scoring", h.handleSetScoringPermission)
			r.Delete("/api/permissions/scoring", h.handleClearScoringPermission)
			r.Put("/api/permissions/divisions", h.handleSetDivisionAccess)
			r.Put("/api/permissions/participants", h.handleSetParticipantAccess)
			r.Get("/api/permissions/judges/{judgeID}/contests/{contestID}", h.handleJudgePermissions)
		})

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(h.requireRole(services.RoleAdmin))
			r.Post("/api/admin/import", h.handleImport)
			r.Get("/api/admin/events", h.handleListEvents)
			r.Post("/api/admin/events/{eventID}/activate", h.handleActivateEvent)
			r.Get("/api/admin/events/{eventID}/awards", h.handleListAwards)
			r.Post("/api/admin/awards", h.handleCreateAward)
			r.Put("/api/admin/awards/{awardID}", h.handleUpdateAward)
			r.Get("/api/admin/judges/{judgeID}/qr", h.handleJudgeQR)
			r.Get("/api/admin/settings/base-url", h.handleGetBaseURL)
			r.Put("/api/admin/settings/base-url", h.handleSetBaseURL)
			r.Get("/api/admin/logging", h.handleGetLogging)
			r.Put("/api/admin/logging", h.handleSetLogging)
		})
	})

	return r
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, HealthResponse{Status: "ok"})
}
