package services

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/abrezinsky/scoretally/internal/errors"
	"github.com/abrezinsky/scoretally/internal/models"
	"github.com/abrezinsky/scoretally/internal/repository"
	"github.com/abrezinsky/scoretally/internal/scoring"
)

// SheetRepository defines what loading a judge's scoresheet reads
type SheetRepository interface {
	GetEvent(ctx context.Context, id int) (*models.Event, error)
	GetContest(ctx context.Context, id int) (*models.Contest, error)
	ListCriteria(ctx context.Context, contestID int) ([]models.Criterion, error)
	ListParticipants(ctx context.Context, contestID int) ([]models.Participant, error)
	ListJudgeScores(ctx context.Context, judgeID, contestID int) ([]models.Score, error)
	ListContestScores(ctx context.Context, contestID int) ([]models.Score, error)
	GetSubmission(ctx context.Context, judgeID, contestID int) (*models.JudgeContestSubmission, error)
	ListScoringPermissions(ctx context.Context, judgeID, contestID int) ([]models.ScoringPermission, error)
	ListDivisionPermissions(ctx context.Context, judgeID, contestID int) ([]models.DivisionPermission, error)
	ListParticipantPermissions(ctx context.Context, judgeID, contestID int) ([]models.ParticipantPermission, error)
}

// PendingScore is an unsaved edit. A nil or blank Value clears the cell.
type PendingScore struct {
	ParticipantID int     `json:"participant_id"`
	CriterionID   int     `json:"criterion_id"`
	Value         *string `json:"value"`
}

// sheet is one judge's view of one contest
type sheet struct {
	judge        models.Judge
	contest      models.Contest
	criteria     []models.Criterion
	participants []models.Participant
	access       scoring.Access
	overrides    scoring.Overrides
	submission   *models.JudgeContestSubmission
	scores       []models.Score
}

// loadSheet reads everything a judge needs to score a contest. The judge's
// event must be active and must own the contest.
func loadSheet(ctx context.Context, repo SheetRepository, judge models.Judge, contestID int) (*sheet, error) {
	if judge.Role != models.RoleJudge && judge.Role != models.RoleChairman {
		return nil, ErrNotJudge
	}
	contest, err := repo.GetContest(ctx, contestID)
	if err != nil {
		return nil, storeError(err, "failed to load contest", ErrContestNotFound)
	}
	if contest.EventID != judge.EventID {
		return nil, ErrContestNotFound
	}
	if err := requireActiveEvent(ctx, repo, judge.EventID); err != nil {
		return nil, err
	}

	sh := &sheet{judge: judge, contest: *contest}
	if sh.criteria, err = repo.ListCriteria(ctx, contestID); err != nil {
		return nil, storeError(err, "failed to load criteria", nil)
	}
	if sh.participants, err = repo.ListParticipants(ctx, contestID); err != nil {
		return nil, storeError(err, "failed to load participants", nil)
	}
	if sh.scores, err = repo.ListJudgeScores(ctx, judge.ID, contestID); err != nil {
		return nil, storeError(err, "failed to load scores", nil)
	}

	perms, err := repo.ListScoringPermissions(ctx, judge.ID, contestID)
	if err != nil {
		return nil, storeError(err, "failed to load permissions", nil)
	}
	sh.overrides = scoring.NewOverrides(perms, judge.ID, contestID)

	divisions, err := repo.ListDivisionPermissions(ctx, judge.ID, contestID)
	if err != nil {
		return nil, storeError(err, "failed to load division access", nil)
	}
	participants, err := repo.ListParticipantPermissions(ctx, judge.ID, contestID)
	if err != nil {
		return nil, storeError(err, "failed to load participant access", nil)
	}
	sh.access = scoring.NewAccess(divisions, participants, judge.ID, contestID)

	sub, err := repo.GetSubmission(ctx, judge.ID, contestID)
	switch {
	case err == nil:
		sh.submission = sub
	case stderrors.Is(err, repository.ErrNotFound):
	default:
		return nil, storeError(err, "failed to load submission", nil)
	}
	return sh, nil
}

func (sh *sheet) submitted() bool {
	return sh.submission != nil
}

func (sh *sheet) decision(criterionID int) scoring.Decision {
	return scoring.CanEdit(sh.judge.Role, sh.overrides, sh.submitted(), criterionID)
}

func (sh *sheet) criterion(id int) (models.Criterion, bool) {
	for _, c := range sh.criteria {
		if c.ID == id {
			return c, true
		}
	}
	return models.Criterion{}, false
}

func (sh *sheet) participant(id int) (models.Participant, bool) {
	for _, p := range sh.participants {
		if p.ID == id {
			return p, true
		}
	}
	return models.Participant{}, false
}

// pending parses unsaved edits into a pending overlay. Edits on criteria
// the judge cannot edit, or on participants they cannot access, are
// dropped; malformed values are a validation error.
func (sh *sheet) pending(edits []PendingScore) (map[scoring.CellKey]*float64, int, error) {
	out := make(map[scoring.CellKey]*float64, len(edits))
	dropped := 0
	for _, e := range edits {
		c, ok := sh.criterion(e.CriterionID)
		if !ok {
			return nil, 0, errors.Validationf("criterion %d is not part of this contest", e.CriterionID)
		}
		p, ok := sh.participant(e.ParticipantID)
		if !ok {
			return nil, 0, errors.Validationf("participant %d is not part of this contest", e.ParticipantID)
		}
		if !scoring.WriteAllowed(sh.access, p, sh.decision(c.ID)) {
			dropped++
			continue
		}
		key := scoring.CellKey{ParticipantID: p.ID, CriterionID: c.ID}
		if e.Value == nil || strings.TrimSpace(*e.Value) == "" {
			out[key] = nil
			continue
		}
		raw, err := scoring.ParseRaw(*e.Value, c, sh.contest.ScoringType)
		if err != nil {
			return nil, 0, err
		}
		out[key] = &raw
	}
	return out, dropped, nil
}
