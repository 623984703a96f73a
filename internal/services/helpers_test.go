package services_test

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/abrezinsky/scoretally/internal/logger"
	"github.com/abrezinsky/scoretally/internal/models"
	"github.com/abrezinsky/scoretally/internal/repository"
	"github.com/abrezinsky/scoretally/internal/repository/mock"
	"github.com/abrezinsky/scoretally/internal/scoring"
	"github.com/abrezinsky/scoretally/internal/services"
	"github.com/abrezinsky/scoretally/internal/testutil"
)

// env holds every service over one seeded in-memory repository
type env struct {
	repo        repository.FullRepository
	fx          testutil.Fixture
	session     *services.SessionService
	scoring     *services.ScoringService
	submission  *services.SubmissionService
	tabulation  *services.TabulationService
	permissions *services.PermissionService
	events      *services.EventService
}

func setup(t *testing.T) *env {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	fx := testutil.Seed(t, repo)
	return newEnv(repo, fx)
}

// setupMock seeds a real repository and wraps it for error injection
func setupMock(t *testing.T) (*env, *mock.Repository) {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	fx := testutil.Seed(t, repo)
	m := mock.NewRepository(repo)
	return newEnv(m, fx), m
}

func newEnv(repo repository.FullRepository, fx testutil.Fixture) *env {
	log := logger.Discard()
	events := services.NewEventService(log, repo, "http://scores.local")
	events.SetPasswordCost(bcrypt.MinCost)
	return &env{
		repo:        repo,
		fx:          fx,
		session:     services.NewSessionService(log, repo, "admin-pass"),
		scoring:     services.NewScoringService(log, repo, nil),
		submission:  services.NewSubmissionService(log, repo, nil),
		tabulation:  services.NewTabulationService(log, repo, nil),
		permissions: services.NewPermissionService(log, repo),
		events:      events,
	}
}

func str(s string) *string { return &s }

func intPtr(v int) *int { return &v }

// scoreGown gives every gown entrant poise 80 and elegance 90 from judge,
// a total of 86
func (e *env) scoreGown(t *testing.T, judge models.Judge) {
	t.Helper()
	testutil.ScoreAll(t, e.repo, judge.ID, e.fx.GownEntrants, e.fx.GownCriteria,
		func(_ models.Participant, c models.Criterion) float64 {
			if c.Name == "Poise" {
				return 80
			}
			return 90
		})
}

// scoreGownFlat gives every gown cell the same raw value from judge
func (e *env) scoreGownFlat(t *testing.T, judge models.Judge, value float64) {
	t.Helper()
	testutil.ScoreAll(t, e.repo, judge.ID, e.fx.GownEntrants, e.fx.GownCriteria,
		func(models.Participant, models.Criterion) float64 { return value })
}

func (e *env) score(t *testing.T, judge models.Judge, participantID, criterionID int) (float64, bool) {
	t.Helper()
	scores, err := e.repo.ListJudgeScores(context.Background(), judge.ID, e.contestOf(t, participantID))
	if err != nil {
		t.Fatalf("ListJudgeScores failed: %v", err)
	}
	for _, s := range scores {
		if s.ParticipantID == participantID && s.CriterionID == criterionID {
			return s.Value, true
		}
	}
	return 0, false
}

func (e *env) contestOf(t *testing.T, participantID int) int {
	t.Helper()
	p, err := e.repo.GetParticipant(context.Background(), participantID)
	if err != nil {
		t.Fatalf("GetParticipant failed: %v", err)
	}
	return p.ContestID
}

func standing(t *testing.T, tab scoring.Tabulation, participantID int) scoring.Standing {
	t.Helper()
	for _, s := range tab.Standings {
		if s.ParticipantID == participantID {
			return s
		}
	}
	t.Fatalf("participant %d not ranked in %+v", participantID, tab.Standings)
	return scoring.Standing{}
}
