package handlers

import (
	"net/http"

	"github.com/abrezinsky/scoretally/internal/auth"
	"github.com/abrezinsky/scoretally/internal/logger"
	"github.com/abrezinsky/scoretally/internal/services"
)

// Services bundles the service layer the handlers call into
type Services struct {
	Session     services.SessionServicer
	Scoring     services.ScoringServicer
	Submission  services.SubmissionServicer
	Tabulation  services.TabulationServicer
	Permissions services.PermissionServicer
	Events      services.EventServicer
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Services
	Sessions *auth.Store
	Realtime http.Handler
	Metrics  http.Handler
	log      logger.Logger
}

// New creates a new Handlers instance. realtime and metrics may be nil, in
// which case /ws and /metrics are not mounted.
func New(svc Services, sessions *auth.Store, realtime, metrics http.Handler, log logger.Logger) *Handlers {
	return &Handlers{
		Services: svc,
		Sessions: sessions,
		Realtime: realtime,
		Metrics:  metrics,
		log:      log,
	}
}
