package mock

import (
	"context"

	"github.com/abrezinsky/scoretally/internal/models"
	"github.com/abrezinsky/scoretally/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.SubmitTotalsError = errors.New("database is locked")
//	svc := services.NewSubmissionService(log, mockRepo, nil)
//	_, err := svc.SubmitAll(ctx, judge, contestID, nil, nil)
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	// ===== Event Errors =====
	GetEventError          error
	ActivateEventError     error
	ImportBundleError      error
	GetContestError        error
	ListContestsError      error
	ListCriteriaError      error
	ListEventCriteriaError error
	GetParticipantError    error
	ListParticipantsError  error

	// ===== Principal Errors =====
	GetJudgeError               error
	GetJudgeByUsernameError     error
	ListJudgesError             error
	GetTabulatorByUsernameError error

	// ===== Score Errors =====
	UpsertScoreError       error
	DeleteScoreError       error
	ListJudgeScoresError   error
	ListContestScoresError error

	// ===== Submission Errors =====
	SubmitTotalsError           error
	GetSubmissionError          error
	ListContestSubmissionsError error
	ListContestTotalsError      error

	// ===== Permission Errors =====
	ListScoringPermissionsError        error
	UpsertScoringPermissionError       error
	DeleteScoringPermissionError       error
	ListDivisionPermissionsError       error
	ListParticipantPermissionsError    error
	ReplaceDivisionPermissionsError    error
	ReplaceParticipantPermissionsError error

	// ===== Award Errors =====
	GetAwardError   error
	ListAwardsError error
	SaveAwardError  error

	// ===== Settings Errors =====
	GetSettingError error
	SetSettingError error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

// ===== Event Methods =====

func (m *Repository) GetEvent(ctx context.Context, id int) (*models.Event, error) {
	if m.GetEventError != nil {
		return nil, m.GetEventError
	}
	return m.FullRepository.GetEvent(ctx, id)
}

func (m *Repository) ActivateEvent(ctx context.Context, id int) error {
	if m.ActivateEventError != nil {
		return m.ActivateEventError
	}
	return m.FullRepository.ActivateEvent(ctx, id)
}

func (m *Repository) ImportBundle(ctx context.Context, b models.EventBundle) (int, error) {
	if m.ImportBundleError != nil {
		return 0, m.ImportBundleError
	}
	return m.FullRepository.ImportBundle(ctx, b)
}

func (m *Repository) GetContest(ctx context.Context, id int) (*models.Contest, error) {
	if m.GetContestError != nil {
		return nil, m.GetContestError
	}
	return m.FullRepository.GetContest(ctx, id)
}

func (m *Repository) ListContests(ctx context.Context, eventID int) ([]models.Contest, error) {
	if m.ListContestsError != nil {
		return nil, m.ListContestsError
	}
	return m.FullRepository.ListContests(ctx, eventID)
}

func (m *Repository) ListCriteria(ctx context.Context, contestID int) ([]models.Criterion, error) {
	if m.ListCriteriaError != nil {
		return nil, m.ListCriteriaError
	}
	return m.FullRepository.ListCriteria(ctx, contestID)
}

func (m *Repository) ListEventCriteria(ctx context.Context, eventID int) ([]models.Criterion, error) {
	if m.ListEventCriteriaError != nil {
		return nil, m.ListEventCriteriaError
	}
	return m.FullRepository.ListEventCriteria(ctx, eventID)
}

func (m *Repository) GetParticipant(ctx context.Context, id int) (*models.Participant, error) {
	if m.GetParticipantError != nil {
		return nil, m.GetParticipantError
	}
	return m.FullRepository.GetParticipant(ctx, id)
}

func (m *Repository) ListParticipants(ctx context.Context, contestID int) ([]models.Participant, error) {
	if m.ListParticipantsError != nil {
		return nil, m.ListParticipantsError
	}
	return m.FullRepository.ListParticipants(ctx, contestID)
}

// ===== Principal Methods =====

func (m *Repository) GetJudge(ctx context.Context, id int) (*models.Judge, error) {
	if m.GetJudgeError != nil {
		return nil, m.GetJudgeError
	}
	return m.FullRepository.GetJudge(ctx, id)
}

func (m *Repository) GetJudgeByUsername(ctx context.Context, username string) (*models.Judge, error) {
	if m.GetJudgeByUsernameError != nil {
		return nil, m.GetJudgeByUsernameError
	}
	return m.FullRepository.GetJudgeByUsername(ctx, username)
}

func (m *Repository) ListJudges(ctx context.Context, eventID int) ([]models.Judge, error) {
	if m.ListJudgesError != nil {
		return nil, m.ListJudgesError
	}
	return m.FullRepository.ListJudges(ctx, eventID)
}

func (m *Repository) GetTabulatorByUsername(ctx context.Context, username string) (*models.Tabulator, error) {
	if m.GetTabulatorByUsernameError != nil {
		return nil, m.GetTabulatorByUsernameError
	}
	return m.FullRepository.GetTabulatorByUsername(ctx, username)
}

// ===== Score Methods =====

func (m *Repository) UpsertScore(ctx context.Context, judgeID, participantID, criterionID int, value float64) (*models.Score, error) {
	if m.UpsertScoreError != nil {
		return nil, m.UpsertScoreError
	}
	return m.FullRepository.UpsertScore(ctx, judgeID, participantID, criterionID, value)
}

func (m *Repository) DeleteScore(ctx context.Context, judgeID, participantID, criterionID int) error {
	if m.DeleteScoreError != nil {
		return m.DeleteScoreError
	}
	return m.FullRepository.DeleteScore(ctx, judgeID, participantID, criterionID)
}

func (m *Repository) ListJudgeScores(ctx context.Context, judgeID, contestID int) ([]models.Score, error) {
	if m.ListJudgeScoresError != nil {
		return nil, m.ListJudgeScoresError
	}
	return m.FullRepository.ListJudgeScores(ctx, judgeID, contestID)
}

func (m *Repository) ListContestScores(ctx context.Context, contestID int) ([]models.Score, error) {
	if m.ListContestScoresError != nil {
		return nil, m.ListContestScoresError
	}
	return m.FullRepository.ListContestScores(ctx, contestID)
}

// ===== Submission Methods =====

func (m *Repository) SubmitTotals(ctx context.Context, batch repository.SubmitBatch) (*repository.SubmitResult, error) {
	if m.SubmitTotalsError != nil {
		return nil, m.SubmitTotalsError
	}
	return m.FullRepository.SubmitTotals(ctx, batch)
}

func (m *Repository) GetSubmission(ctx context.Context, judgeID, contestID int) (*models.JudgeContestSubmission, error) {
	if m.GetSubmissionError != nil {
		return nil, m.GetSubmissionError
	}
	return m.FullRepository.GetSubmission(ctx, judgeID, contestID)
}

func (m *Repository) ListContestSubmissions(ctx context.Context, contestID int) ([]models.JudgeContestSubmission, error) {
	if m.ListContestSubmissionsError != nil {
		return nil, m.ListContestSubmissionsError
	}
	return m.FullRepository.ListContestSubmissions(ctx, contestID)
}

func (m *Repository) ListContestTotals(ctx context.Context, contestID int) ([]models.JudgeParticipantTotal, error) {
	if m.ListContestTotalsError != nil {
		return nil, m.ListContestTotalsError
	}
	return m.FullRepository.ListContestTotals(ctx, contestID)
}

// ===== Permission Methods =====

func (m *Repository) ListScoringPermissions(ctx context.Context, judgeID, contestID int) ([]models.ScoringPermission, error) {
	if m.ListScoringPermissionsError != nil {
		return nil, m.ListScoringPermissionsError
	}
	return m.FullRepository.ListScoringPermissions(ctx, judgeID, contestID)
}

func (m *Repository) UpsertScoringPermission(ctx context.Context, judgeID, contestID int, criterionID *int, canEdit bool) (*models.ScoringPermission, error) {
	if m.UpsertScoringPermissionError != nil {
		return nil, m.UpsertScoringPermissionError
	}
	return m.FullRepository.UpsertScoringPermission(ctx, judgeID, contestID, criterionID, canEdit)
}

func (m *Repository) DeleteScoringPermission(ctx context.Context, judgeID, contestID int, criterionID *int) error {
	if m.DeleteScoringPermissionError != nil {
		return m.DeleteScoringPermissionError
	}
	return m.FullRepository.DeleteScoringPermission(ctx, judgeID, contestID, criterionID)
}

func (m *Repository) ListDivisionPermissions(ctx context.Context, judgeID, contestID int) ([]models.DivisionPermission, error) {
	if m.ListDivisionPermissionsError != nil {
		return nil, m.ListDivisionPermissionsError
	}
	return m.FullRepository.ListDivisionPermissions(ctx, judgeID, contestID)
}

func (m *Repository) ListParticipantPermissions(ctx context.Context, judgeID, contestID int) ([]models.ParticipantPermission, error) {
	if m.ListParticipantPermissionsError != nil {
		return nil, m.ListParticipantPermissionsError
	}
	return m.FullRepository.ListParticipantPermissions(ctx, judgeID, contestID)
}

func (m *Repository) ReplaceDivisionPermissions(ctx context.Context, judgeID, contestID int, ids []int) error {
	if m.ReplaceDivisionPermissionsError != nil {
		return m.ReplaceDivisionPermissionsError
	}
	return m.FullRepository.ReplaceDivisionPermissions(ctx, judgeID, contestID, ids)
}

func (m *Repository) ReplaceParticipantPermissions(ctx context.Context, judgeID, contestID int, ids []int) error {
	if m.ReplaceParticipantPermissionsError != nil {
		return m.ReplaceParticipantPermissionsError
	}
	return m.FullRepository.ReplaceParticipantPermissions(ctx, judgeID, contestID, ids)
}

// ===== Award Methods =====

func (m *Repository) GetAward(ctx context.Context, id int) (*models.Award, error) {
	if m.GetAwardError != nil {
		return nil, m.GetAwardError
	}
	return m.FullRepository.GetAward(ctx, id)
}

func (m *Repository) ListAwards(ctx context.Context, eventID int, activeOnly bool) ([]models.Award, error) {
	if m.ListAwardsError != nil {
		return nil, m.ListAwardsError
	}
	return m.FullRepository.ListAwards(ctx, eventID, activeOnly)
}

func (m *Repository) SaveAward(ctx context.Context, award models.Award) (*models.Award, error) {
	if m.SaveAwardError != nil {
		return nil, m.SaveAwardError
	}
	return m.FullRepository.SaveAward(ctx, award)
}

// ===== Settings Methods =====

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.FullRepository.SetSetting(ctx, key, value)
}

// Ensure Repository implements all interfaces
var _ repository.FullRepository = (*Repository)(nil)
