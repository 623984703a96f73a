package services

import (
	"context"
	"crypto/subtle"
	stderrors "errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/abrezinsky/scoretally/internal/logger"
	"github.com/abrezinsky/scoretally/internal/models"
	"github.com/abrezinsky/scoretally/internal/repository"
)

// Role is the kind of principal a session belongs to
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleJudge     Role = "judge"
	RoleTabulator Role = "tabulator"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleJudge || r == RoleTabulator
}

// AdminUsername is the fixed identity of the configured administrator
const AdminUsername = "admin"

// Principal is a resolved session identity
type Principal struct {
	Role      Role             `json:"role"`
	ID        int              `json:"id"`
	EventID   int              `json:"event_id,omitempty"`
	Username  string           `json:"username"`
	Name      string           `json:"name,omitempty"`
	JudgeRole models.JudgeRole `json:"judge_role,omitempty"`
}

// Judge returns the judge record a judge principal stands for
func (p Principal) Judge() models.Judge {
	return models.Judge{ID: p.ID, EventID: p.EventID, Username: p.Username, Name: p.Name, Role: p.JudgeRole}
}

// SessionRepository defines the repository methods needed by SessionService
type SessionRepository interface {
	GetEvent(ctx context.Context, id int) (*models.Event, error)
	GetJudgeByUsername(ctx context.Context, username string) (*models.Judge, error)
	GetTabulatorByUsername(ctx context.Context, username string) (*models.Tabulator, error)
}

// SessionService authenticates and re-resolves principals
type SessionService struct {
	log           logger.Logger
	repo          SessionRepository
	adminPassword string
}

// NewSessionService creates a new SessionService. An empty admin password
// disables admin login.
func NewSessionService(log logger.Logger, repo SessionRepository, adminPassword string) *SessionService {
	return &SessionService{log: log, repo: repo, adminPassword: adminPassword}
}

// AuthenticateRole checks credentials for role and returns the principal
func (s *SessionService) AuthenticateRole(ctx context.Context, role Role, username, password string) (*Principal, error) {
	switch role {
	case RoleAdmin:
		if s.adminPassword == "" || subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) != 1 {
			s.log.Warn("admin login rejected")
			return nil, ErrInvalidCredentials
		}
		return &Principal{Role: RoleAdmin, Username: AdminUsername}, nil

	case RoleJudge:
		j, err := s.repo.GetJudgeByUsername(ctx, username)
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		if err != nil {
			return nil, storeError(err, "failed to load judge", nil)
		}
		if bcrypt.CompareHashAndPassword([]byte(j.PasswordHash), []byte(password)) != nil {
			s.log.Warn("judge login rejected", "username", username)
			return nil, ErrInvalidCredentials
		}
		s.log.Info("judge logged in", "judge_id", j.ID, "username", username)
		return judgePrincipal(j), nil

	case RoleTabulator:
		t, err := s.repo.GetTabulatorByUsername(ctx, username)
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		if err != nil {
			return nil, storeError(err, "failed to load tabulator", nil)
		}
		if bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(password)) != nil {
			s.log.Warn("tabulator login rejected", "username", username)
			return nil, ErrInvalidCredentials
		}
		s.log.Info("tabulator logged in", "tabulator_id", t.ID, "username", username)
		return tabulatorPrincipal(t), nil
	}
	return nil, ErrUnknownRole
}

// ResolvePrincipal turns a stored (role, username) back into a principal.
// An empty username is ErrNoSession; a username that no longer exists is
// ErrIdentityNotFound; a principal whose event is gone is ErrEventNotFound.
func (s *SessionService) ResolvePrincipal(ctx context.Context, role Role, username string) (*Principal, error) {
	if username == "" {
		return nil, ErrNoSession
	}

	var p *Principal
	switch role {
	case RoleAdmin:
		if username != AdminUsername {
			return nil, ErrIdentityNotFound
		}
		return &Principal{Role: RoleAdmin, Username: AdminUsername}, nil
	case RoleJudge:
		j, err := s.repo.GetJudgeByUsername(ctx, username)
		if err != nil {
			return nil, storeError(err, "failed to load judge", ErrIdentityNotFound)
		}
		p = judgePrincipal(j)
	case RoleTabulator:
		t, err := s.repo.GetTabulatorByUsername(ctx, username)
		if err != nil {
			return nil, storeError(err, "failed to load tabulator", ErrIdentityNotFound)
		}
		p = tabulatorPrincipal(t)
	default:
		return nil, ErrNoSession
	}

	if _, err := s.repo.GetEvent(ctx, p.EventID); err != nil {
		return nil, storeError(err, "failed to load event", ErrEventNotFound)
	}
	return p, nil
}

// RequireActiveEvent fails with ErrEventInactive unless eventID is the active event
func (s *SessionService) RequireActiveEvent(ctx context.Context, eventID int) error {
	return requireActiveEvent(ctx, s.repo, eventID)
}

type eventGetter interface {
	GetEvent(ctx context.Context, id int) (*models.Event, error)
}

func requireActiveEvent(ctx context.Context, repo eventGetter, eventID int) error {
	e, err := repo.GetEvent(ctx, eventID)
	if err != nil {
		return storeError(err, "failed to load event", ErrEventNotFound)
	}
	if !e.Active {
		return ErrEventInactive
	}
	return nil
}

func judgePrincipal(j *models.Judge) *Principal {
	return &Principal{
		Role: RoleJudge, ID: j.ID, EventID: j.EventID,
		Username: j.Username, Name: j.Name, JudgeRole: j.Role,
	}
}

func tabulatorPrincipal(t *models.Tabulator) *Principal {
	return &Principal{Role: RoleTabulator, ID: t.ID, EventID: t.EventID, Username: t.Username, Name: t.Name}
}
