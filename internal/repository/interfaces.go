package repository

import (
	"context"

	"github.com/abrezinsky/scoretally/internal/models"
)

// EventRepository defines event structure read operations and setup writes
type EventRepository interface {
	GetEvent(ctx context.Context, id int) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	ActivateEvent(ctx context.Context, id int) error
	ImportBundle(ctx context.Context, b models.EventBundle) (int, error)
	GetContest(ctx context.Context, id int) (*models.Contest, error)
	ListContests(ctx context.Context, eventID int) ([]models.Contest, error)
	ListCriteria(ctx context.Context, contestID int) ([]models.Criterion, error)
	ListEventCriteria(ctx context.Context, eventID int) ([]models.Criterion, error)
	ListDivisions(ctx context.Context, eventID int) ([]models.Division, error)
	GetParticipant(ctx context.Context, id int) (*models.Participant, error)
	ListParticipants(ctx context.Context, contestID int) ([]models.Participant, error)
}

// PrincipalRepository defines judge and tabulator lookups
type PrincipalRepository interface {
	GetJudge(ctx context.Context, id int) (*models.Judge, error)
	GetJudgeByUsername(ctx context.Context, username string) (*models.Judge, error)
	ListJudges(ctx context.Context, eventID int) ([]models.Judge, error)
	GetTabulatorByUsername(ctx context.Context, username string) (*models.Tabulator, error)
}

// ScoreRepository defines raw score operations
type ScoreRepository interface {
	UpsertScore(ctx context.Context, judgeID, participantID, criterionID int, value float64) (*models.Score, error)
	DeleteScore(ctx context.Context, judgeID, participantID, criterionID int) error
	ListJudgeScores(ctx context.Context, judgeID, contestID int) ([]models.Score, error)
	ListContestScores(ctx context.Context, contestID int) ([]models.Score, error)
}

// SubmissionRepository defines submission and persisted total operations
type SubmissionRepository interface {
	SubmitTotals(ctx context.Context, batch SubmitBatch) (*SubmitResult, error)
	GetSubmission(ctx context.Context, judgeID, contestID int) (*models.JudgeContestSubmission, error)
	ListContestSubmissions(ctx context.Context, contestID int) ([]models.JudgeContestSubmission, error)
	ListContestTotals(ctx context.Context, contestID int) ([]models.JudgeParticipantTotal, error)
}

// PermissionRepository defines permission override operations
type PermissionRepository interface {
	ListScoringPermissions(ctx context.Context, judgeID, contestID int) ([]models.ScoringPermission, error)
	UpsertScoringPermission(ctx context.Context, judgeID, contestID int, criterionID *int, canEdit bool) (*models.ScoringPermission, error)
	DeleteScoringPermission(ctx context.Context, judgeID, contestID int, criterionID *int) error
	ListDivisionPermissions(ctx context.Context, judgeID, contestID int) ([]models.DivisionPermission, error)
	ListParticipantPermissions(ctx context.Context, judgeID, contestID int) ([]models.ParticipantPermission, error)
	ReplaceDivisionPermissions(ctx context.Context, judgeID, contestID int, ids []int) error
	ReplaceParticipantPermissions(ctx context.Context, judgeID, contestID int, ids []int) error
}

// AwardRepository defines award operations
type AwardRepository interface {
	GetAward(ctx context.Context, id int) (*models.Award, error)
	ListAwards(ctx context.Context, eventID int, activeOnly bool) ([]models.Award, error)
	SaveAward(ctx context.Context, award models.Award) (*models.Award, error)
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	EventRepository
	PrincipalRepository
	ScoreRepository
	SubmissionRepository
	PermissionRepository
	AwardRepository
	SettingsRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
