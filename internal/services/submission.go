package services

import (
	"context"
	"sort"

	"github.com/abrezinsky/scoretally/internal/errors"
	"github.com/abrezinsky/scoretally/internal/logger"
	"github.com/abrezinsky/scoretally/internal/models"
	"github.com/abrezinsky/scoretally/internal/repository"
	"github.com/abrezinsky/scoretally/internal/scoring"
)

// SubmissionServiceRepository defines the repository methods needed by SubmissionService
type SubmissionServiceRepository interface {
	SheetRepository
	SubmitTotals(ctx context.Context, batch repository.SubmitBatch) (*repository.SubmitResult, error)
}

// SubmissionService runs submit-all
type SubmissionService struct {
	log     logger.Logger
	repo    SubmissionServiceRepository
	metrics Metrics
}

// NewSubmissionService creates a new SubmissionService. metrics may be nil.
func NewSubmissionService(log logger.Logger, repo SubmissionServiceRepository, metrics Metrics) *SubmissionService {
	return &SubmissionService{log: log, repo: repo, metrics: metricsOrNop(metrics)}
}

// SubmitResult reports a completed submit-all
type SubmitResult struct {
	ContestID  int             `json:"contest_id"`
	DivisionID *int            `json:"division_id,omitempty"`
	Targets    int             `json:"targets"`
	Dropped    int             `json:"dropped_edits"`
	Totals     map[int]float64 `json:"totals"`
	*repository.SubmitResult
}

// SubmitAll validates, totals and persists the judge's scores for every
// participant they may access, optionally narrowed to one division.
// Pending edits are flushed in the same transaction. Nothing is written
// unless every targeted participant has a valid value for every criterion.
func (s *SubmissionService) SubmitAll(ctx context.Context, judge models.Judge, contestID int, divisionID *int, pending []PendingScore) (*SubmitResult, error) {
	sh, err := loadSheet(ctx, s.repo, judge, contestID)
	if err != nil {
		s.metrics.Submission(OutcomeInvalid)
		return nil, err
	}

	if divisionID != nil && !sh.access.CanAccessDivision(*divisionID) {
		s.metrics.Submission(OutcomeInvalid)
		return nil, errors.Forbidden("division is not assigned to this judge")
	}

	var targets []models.Participant
	for _, p := range sh.access.Filter(sh.participants) {
		if divisionID == nil || p.DivisionID == *divisionID {
			targets = append(targets, p)
		}
	}

	overlay, dropped, err := sh.pending(pending)
	if err != nil {
		s.metrics.Submission(OutcomeInvalid)
		return nil, err
	}
	set := scoring.NewScoreSet(sh.scores).WithPending(overlay)

	// Every check happens before anything is written
	totals := make(map[int]float64, len(targets))
	for _, p := range targets {
		for _, c := range sh.criteria {
			v, ok := set.Value(scoring.CellKey{ParticipantID: p.ID, CriterionID: c.ID})
			if !ok {
				s.metrics.Submission(OutcomeInvalid)
				return nil, errors.Validationf("participant %s is missing a score for %q", p.Number, c.Name)
			}
			if err := scoring.ValidateRaw(v, c, sh.contest.ScoringType); err != nil {
				s.metrics.Submission(OutcomeInvalid)
				return nil, err
			}
		}
		total, _ := scoring.ParticipantTotal(set, p.ID, sh.criteria, sh.contest.ScoringType)
		totals[p.ID] = total
	}

	batch := repository.SubmitBatch{JudgeID: judge.ID, ContestID: contestID, Totals: totals}
	for key, v := range overlay {
		if v == nil {
			continue
		}
		batch.Scores = append(batch.Scores, repository.ScoreWrite{
			ParticipantID: key.ParticipantID, CriterionID: key.CriterionID, Value: *v,
		})
	}
	sortWrites(batch.Scores)

	res, err := s.repo.SubmitTotals(ctx, batch)
	if err != nil {
		s.metrics.Submission(OutcomeFailed)
		s.log.Error("submission failed", "judge_id", judge.ID, "contest_id", contestID, "error", err)
		return nil, storeError(err, "failed to submit scores", nil)
	}

	s.metrics.Submission(OutcomeOK)
	s.log.Info("scores submitted",
		"judge_id", judge.ID, "contest_id", contestID, "targets", len(targets),
		"flushed", len(batch.Scores), "dropped", dropped, "first_submission", res.MarkerAdded)
	return &SubmitResult{
		ContestID:    contestID,
		DivisionID:   divisionID,
		Targets:      len(targets),
		Dropped:      dropped,
		Totals:       totals,
		SubmitResult: res,
	}, nil
}

func sortWrites(w []repository.ScoreWrite) {
	sort.Slice(w, func(i, j int) bool {
		if w[i].ParticipantID != w[j].ParticipantID {
			return w[i].ParticipantID < w[j].ParticipantID
		}
		return w[i].CriterionID < w[j].CriterionID
	})
}
