package services

import (
	"context"
	"time"

	"github.com/abrezinsky/scoretally/internal/models"
	"github.com/abrezinsky/scoretally/internal/scoring"
)

// SessionServicer defines the interface for login and identity resolution
type SessionServicer interface {
	AuthenticateRole(ctx context.Context, role Role, username, password string) (*Principal, error)
	ResolvePrincipal(ctx context.Context, role Role, username string) (*Principal, error)
	RequireActiveEvent(ctx context.Context, eventID int) error
}

// ScoringServicer defines the interface for a judge's scoresheet operations
type ScoringServicer interface {
	Contests(ctx context.Context, judge models.Judge) ([]ContestSummary, error)
	Scoresheet(ctx context.Context, judge models.Judge, contestID int) (*Scoresheet, error)
	SaveScore(ctx context.Context, judge models.Judge, participantID, criterionID int, raw *string) (*SaveResult, error)
	Preview(ctx context.Context, judge models.Judge, contestID int, pending []PendingScore) ([]PreviewLine, error)
}

// SubmissionServicer defines the interface for submit-all
type SubmissionServicer interface {
	SubmitAll(ctx context.Context, judge models.Judge, contestID int, divisionID *int, pending []PendingScore) (*SubmitResult, error)
}

// TabulationServicer defines the interface for rankings and oversight
type TabulationServicer interface {
	ContestEventID(ctx context.Context, contestID int) (int, error)
	AwardEventID(ctx context.Context, awardID int) (int, error)
	ContestRanking(ctx context.Context, contestID int, scope scoring.Scope, source scoring.Source) (*scoring.Tabulation, error)
	AwardRankings(ctx context.Context, eventID int, scope scoring.Scope) ([]scoring.AwardResult, error)
	AwardRanking(ctx context.Context, awardID int, scope scoring.Scope) (*scoring.AwardResult, error)
	Progress(ctx context.Context, contestID int) (*Progress, error)
}

// PermissionServicer defines the interface for permission checks and overrides
type PermissionServicer interface {
	CanEdit(ctx context.Context, judgeID, contestID, criterionID int) (scoring.Decision, error)
	CanAccessDivision(ctx context.Context, judgeID, contestID, divisionID int) (bool, error)
	CanAccessParticipant(ctx context.Context, judgeID, contestID, participantID int) (bool, error)
	JudgePermissions(ctx context.Context, judgeID, contestID int) (*JudgePermissions, error)
	SetScoringPermission(ctx context.Context, judgeID, contestID int, criterionID *int, canEdit bool) (*models.ScoringPermission, error)
	ClearScoringPermission(ctx context.Context, judgeID, contestID int, criterionID *int) error
	SetDivisionAccess(ctx context.Context, judgeID, contestID int, ids []int) error
	SetParticipantAccess(ctx context.Context, judgeID, contestID int, ids []int) error
}

// EventServicer defines the interface for event setup
type EventServicer interface {
	DecodeBundle(data []byte, contentType string) (models.EventBundle, error)
	ImportEvent(ctx context.Context, b models.EventBundle) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	ActiveEvent(ctx context.Context) (*models.Event, error)
	ActivateEvent(ctx context.Context, id int) error
	ListAwards(ctx context.Context, eventID int) ([]models.Award, error)
	SaveAward(ctx context.Context, award models.Award) (*models.Award, error)
	GetBaseURL(ctx context.Context) (string, error)
	SetBaseURL(ctx context.Context, url string) error
	JudgeLoginQR(ctx context.Context, judgeID int) ([]byte, error)
}

// Metrics receives service outcomes. The metrics package implements it.
type Metrics interface {
	ScoreSave(outcome string)
	Submission(outcome string)
	ObserveTabulation(view string, d time.Duration)
}

// Outcomes reported to Metrics
const (
	OutcomeSaved    = "saved"
	OutcomeCleared  = "cleared"
	OutcomeLocked   = "locked"
	OutcomeRejected = "rejected"
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
)

type nopMetrics struct{}

func (nopMetrics) ScoreSave(string)                        {}
func (nopMetrics) Submission(string)                       {}
func (nopMetrics) ObserveTabulation(string, time.Duration) {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}

// Ensure concrete types implement interfaces
var (
	_ SessionServicer    = (*SessionService)(nil)
	_ ScoringServicer    = (*ScoringService)(nil)
	_ SubmissionServicer = (*SubmissionService)(nil)
	_ TabulationServicer = (*TabulationService)(nil)
	_ PermissionServicer = (*PermissionService)(nil)
	_ EventServicer      = (*EventService)(nil)
)
