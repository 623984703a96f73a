package services

import (
	"context"
	stderrors "errors"

	"github.com/abrezinsky/scoretally/internal/errors"
	"github.com/abrezinsky/scoretally/internal/logger"
	"github.com/abrezinsky/scoretally/internal/models"
	"github.com/abrezinsky/scoretally/internal/repository"
	"github.com/abrezinsky/scoretally/internal/scoring"
)

// PermissionServiceRepository defines the repository methods needed by PermissionService
type PermissionServiceRepository interface {
	GetJudge(ctx context.Context, id int) (*models.Judge, error)
	GetContest(ctx context.Context, id int) (*models.Contest, error)
	ListCriteria(ctx context.Context, contestID int) ([]models.Criterion, error)
	ListDivisions(ctx context.Context, eventID int) ([]models.Division, error)
	GetParticipant(ctx context.Context, id int) (*models.Participant, error)
	GetSubmission(ctx context.Context, judgeID, contestID int) (*models.JudgeContestSubmission, error)
	ListScoringPermissions(ctx context.Context, judgeID, contestID int) ([]models.ScoringPermission, error)
	UpsertScoringPermission(ctx context.Context, judgeID, contestID int, criterionID *int, canEdit bool) (*models.ScoringPermission, error)
	DeleteScoringPermission(ctx context.Context, judgeID, contestID int, criterionID *int) error
	ListDivisionPermissions(ctx context.Context, judgeID, contestID int) ([]models.DivisionPermission, error)
	ListParticipantPermissions(ctx context.Context, judgeID, contestID int) ([]models.ParticipantPermission, error)
	ReplaceDivisionPermissions(ctx context.Context, judgeID, contestID int, ids []int) error
	ReplaceParticipantPermissions(ctx context.Context, judgeID, contestID int, ids []int) error
}

// PermissionService answers and administers edit and access overrides
type PermissionService struct {
	log  logger.Logger
	repo PermissionServiceRepository
}

// NewPermissionService creates a new PermissionService
func NewPermissionService(log logger.Logger, repo PermissionServiceRepository) *PermissionService {
	return &PermissionService{log: log, repo: repo}
}

// JudgePermissions is the full override state of a judge in a contest
type JudgePermissions struct {
	JudgeID            int                        `json:"judge_id"`
	ContestID          int                        `json:"contest_id"`
	ScoringPermissions []models.ScoringPermission `json:"scoring_permissions"`
	Decisions          map[int]scoring.Decision   `json:"decisions"`
	Divisions          []int                      `json:"divisions"`
	Participants       []int                      `json:"participants"`
	Submitted          bool                       `json:"submitted"`
}

// pair loads a judge and contest and checks they belong to the same event
func (s *PermissionService) pair(ctx context.Context, judgeID, contestID int) (*models.Judge, *models.Contest, error) {
	judge, err := s.repo.GetJudge(ctx, judgeID)
	if err != nil {
		return nil, nil, storeError(err, "failed to load judge", ErrJudgeNotFound)
	}
	contest, err := s.repo.GetContest(ctx, contestID)
	if err != nil {
		return nil, nil, storeError(err, "failed to load contest", ErrContestNotFound)
	}
	if contest.EventID != judge.EventID {
		return nil, nil, ErrContestNotFound
	}
	return judge, contest, nil
}

func (s *PermissionService) submitted(ctx context.Context, judgeID, contestID int) (bool, error) {
	_, err := s.repo.GetSubmission(ctx, judgeID, contestID)
	switch {
	case err == nil:
		return true, nil
	case stderrors.Is(err, repository.ErrNotFound):
		return false, nil
	}
	return false, storeError(err, "failed to load submission", nil)
}

func (s *PermissionService) access(ctx context.Context, judgeID, contestID int) (scoring.Access, error) {
	divisions, err := s.repo.ListDivisionPermissions(ctx, judgeID, contestID)
	if err != nil {
		return scoring.Access{}, storeError(err, "failed to load division access", nil)
	}
	participants, err := s.repo.ListParticipantPermissions(ctx, judgeID, contestID)
	if err != nil {
		return scoring.Access{}, storeError(err, "failed to load participant access", nil)
	}
	return scoring.NewAccess(divisions, participants, judgeID, contestID), nil
}

// CanEdit reports whether the judge may edit the criterion and which rule decided it
func (s *PermissionService) CanEdit(ctx context.Context, judgeID, contestID, criterionID int) (scoring.Decision, error) {
	judge, _, err := s.pair(ctx, judgeID, contestID)
	if err != nil {
		return scoring.Decision{}, err
	}
	perms, err := s.repo.ListScoringPermissions(ctx, judgeID, contestID)
	if err != nil {
		return scoring.Decision{}, storeError(err, "failed to load permissions", nil)
	}
	submitted, err := s.submitted(ctx, judgeID, contestID)
	if err != nil {
		return scoring.Decision{}, err
	}
	return scoring.CanEdit(judge.Role, scoring.NewOverrides(perms, judgeID, contestID), submitted, criterionID), nil
}

// CanAccessDivision reports whether the judge may see the division. No
// division overrides means every division.
func (s *PermissionService) CanAccessDivision(ctx context.Context, judgeID, contestID, divisionID int) (bool, error) {
	if _, _, err := s.pair(ctx, judgeID, contestID); err != nil {
		return false, err
	}
	a, err := s.access(ctx, judgeID, contestID)
	if err != nil {
		return false, err
	}
	return a.CanAccessDivision(divisionID), nil
}

// CanAccessParticipant reports whether the judge may see the participant.
// Division and participant overrides both apply.
func (s *PermissionService) CanAccessParticipant(ctx context.Context, judgeID, contestID, participantID int) (bool, error) {
	if _, _, err := s.pair(ctx, judgeID, contestID); err != nil {
		return false, err
	}
	p, err := s.repo.GetParticipant(ctx, participantID)
	if err != nil {
		return false, storeError(err, "failed to load participant", ErrParticipantMissing)
	}
	if p.ContestID != contestID {
		return false, nil
	}
	a, err := s.access(ctx, judgeID, contestID)
	if err != nil {
		return false, err
	}
	return a.Allows(*p), nil
}

// JudgePermissions returns every override of the judge in the contest with
// the resulting decision per criterion
func (s *PermissionService) JudgePermissions(ctx context.Context, judgeID, contestID int) (*JudgePermissions, error) {
	judge, _, err := s.pair(ctx, judgeID, contestID)
	if err != nil {
		return nil, err
	}
	perms, err := s.repo.ListScoringPermissions(ctx, judgeID, contestID)
	if err != nil {
		return nil, storeError(err, "failed to load permissions", nil)
	}
	criteria, err := s.repo.ListCriteria(ctx, contestID)
	if err != nil {
		return nil, storeError(err, "failed to load criteria", nil)
	}
	submitted, err := s.submitted(ctx, judgeID, contestID)
	if err != nil {
		return nil, err
	}
	divisions, err := s.repo.ListDivisionPermissions(ctx, judgeID, contestID)
	if err != nil {
		return nil, storeError(err, "failed to load division access", nil)
	}
	participants, err := s.repo.ListParticipantPermissions(ctx, judgeID, contestID)
	if err != nil {
		return nil, storeError(err, "failed to load participant access", nil)
	}

	out := &JudgePermissions{
		JudgeID:            judgeID,
		ContestID:          contestID,
		ScoringPermissions: perms,
		Decisions:          make(map[int]scoring.Decision, len(criteria)),
		Divisions:          make([]int, 0, len(divisions)),
		Participants:       make([]int, 0, len(participants)),
		Submitted:          submitted,
	}
	if out.ScoringPermissions == nil {
		out.ScoringPermissions = []models.ScoringPermission{}
	}
	overrides := scoring.NewOverrides(perms, judgeID, contestID)
	for _, c := range criteria {
		out.Decisions[c.ID] = scoring.CanEdit(judge.Role, overrides, submitted, c.ID)
	}
	for _, d := range divisions {
		out.Divisions = append(out.Divisions, d.DivisionID)
	}
	for _, p := range participants {
		out.Participants = append(out.Participants, p.ParticipantID)
	}
	return out, nil
}

func (s *PermissionService) checkCriterion(ctx context.Context, contestID int, criterionID *int) error {
	if criterionID == nil {
		return nil
	}
	criteria, err := s.repo.ListCriteria(ctx, contestID)
	if err != nil {
		return storeError(err, "failed to load criteria", nil)
	}
	for _, c := range criteria {
		if c.ID == *criterionID {
			return nil
		}
	}
	return ErrCriterionMissing
}

// SetScoringPermission writes an override. A nil criterion sets the
// judge's contest-wide default.
func (s *PermissionService) SetScoringPermission(ctx context.Context, judgeID, contestID int, criterionID *int, canEdit bool) (*models.ScoringPermission, error) {
	if _, _, err := s.pair(ctx, judgeID, contestID); err != nil {
		return nil, err
	}
	if err := s.checkCriterion(ctx, contestID, criterionID); err != nil {
		return nil, err
	}
	perm, err := s.repo.UpsertScoringPermission(ctx, judgeID, contestID, criterionID, canEdit)
	if err != nil {
		s.log.Error("failed to set scoring permission", "judge_id", judgeID, "contest_id", contestID, "error", err)
		return nil, storeError(err, "failed to set scoring permission", nil)
	}
	s.log.Info("scoring permission set",
		"judge_id", judgeID, "contest_id", contestID, "criterion_id", logID(criterionID), "can_edit", canEdit)
	return perm, nil
}

// ClearScoringPermission removes an override. Clearing one that does not
// exist is not an error.
func (s *PermissionService) ClearScoringPermission(ctx context.Context, judgeID, contestID int, criterionID *int) error {
	if _, _, err := s.pair(ctx, judgeID, contestID); err != nil {
		return err
	}
	err := s.repo.DeleteScoringPermission(ctx, judgeID, contestID, criterionID)
	if err != nil && !stderrors.Is(err, repository.ErrNotFound) {
		return storeError(err, "failed to clear scoring permission", nil)
	}
	s.log.Info("scoring permission cleared", "judge_id", judgeID, "contest_id", contestID, "criterion_id", logID(criterionID))
	return nil
}

// SetDivisionAccess replaces the judge's division overrides for the
// contest. An empty list lifts the restriction.
func (s *PermissionService) SetDivisionAccess(ctx context.Context, judgeID, contestID int, ids []int) error {
	_, contest, err := s.pair(ctx, judgeID, contestID)
	if err != nil {
		return err
	}
	divisions, err := s.repo.ListDivisions(ctx, contest.EventID)
	if err != nil {
		return storeError(err, "failed to load divisions", nil)
	}
	known := make(map[int]bool, len(divisions))
	for _, d := range divisions {
		known[d.ID] = true
	}
	ids = models.NewIDList(ids...)
	for _, id := range ids {
		if !known[id] {
			return errors.Validationf("division %d is not part of this event", id)
		}
	}
	if err := s.repo.ReplaceDivisionPermissions(ctx, judgeID, contestID, ids); err != nil {
		return storeError(err, "failed to set division access", nil)
	}
	s.log.Info("division access set", "judge_id", judgeID, "contest_id", contestID, "divisions", len(ids))
	return nil
}

// SetParticipantAccess replaces the judge's participant overrides for the
// contest. An empty list lifts the restriction.
func (s *PermissionService) SetParticipantAccess(ctx context.Context, judgeID, contestID int, ids []int) error {
	if _, _, err := s.pair(ctx, judgeID, contestID); err != nil {
		return err
	}
	ids = models.NewIDList(ids...)
	for _, id := range ids {
		p, err := s.repo.GetParticipant(ctx, id)
		if stderrors.Is(err, repository.ErrNotFound) || (err == nil && p.ContestID != contestID) {
			return errors.Validationf("participant %d is not part of this contest", id)
		}
		if err != nil {
			return storeError(err, "failed to load participant", nil)
		}
	}
	if err := s.repo.ReplaceParticipantPermissions(ctx, judgeID, contestID, ids); err != nil {
		return storeError(err, "failed to set participant access", nil)
	}
	s.log.Info("participant access set", "judge_id", judgeID, "contest_id", contestID, "participants", len(ids))
	return nil
}

// logID renders an optional criterion id for log output
func logID(id *int) any {
	if id == nil {
		return "contest default"
	}
	return *id
}
