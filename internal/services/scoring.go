package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/abrezinsky/scoretally/internal/logger"
	"github.com/abrezinsky/scoretally/internal/models"
	"github.com/abrezinsky/scoretally/internal/repository"
	"github.com/abrezinsky/scoretally/internal/scoring"
)

// ScoringServiceRepository defines the repository methods needed by ScoringService
type ScoringServiceRepository interface {
	SheetRepository
	ListContests(ctx context.Context, eventID int) ([]models.Contest, error)
	GetParticipant(ctx context.Context, id int) (*models.Participant, error)
	UpsertScore(ctx context.Context, judgeID, participantID, criterionID int, value float64) (*models.Score, error)
	DeleteScore(ctx context.Context, judgeID, participantID, criterionID int) error
}

// ScoringService handles a judge's scoresheet
type ScoringService struct {
	log     logger.Logger
	repo    ScoringServiceRepository
	metrics Metrics
}

// NewScoringService creates a new ScoringService. metrics may be nil.
func NewScoringService(log logger.Logger, repo ScoringServiceRepository, metrics Metrics) *ScoringService {
	return &ScoringService{log: log, repo: repo, metrics: metricsOrNop(metrics)}
}

// ContestSummary is one entry of a judge's contest list
type ContestSummary struct {
	models.Contest
	Submitted   bool       `json:"submitted"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// Scoresheet is everything a judge's scoring view shows
type Scoresheet struct {
	Contest      models.Contest           `json:"contest"`
	Criteria     []models.Criterion       `json:"criteria"`
	Participants []models.Participant     `json:"participants"`
	Scores       []models.Score           `json:"scores"`
	Permissions  map[int]scoring.Decision `json:"permissions"`
	Submitted    bool                     `json:"submitted"`
	SubmittedAt  *time.Time               `json:"submitted_at,omitempty"`
	Standings    scoring.Tabulation       `json:"standings"`
}

// SaveResult reports the outcome of one cell save
type SaveResult struct {
	Status   string           `json:"status"`
	Score    *models.Score    `json:"score,omitempty"`
	Decision scoring.Decision `json:"decision"`
}

// PreviewLine is one participant's total with pending edits applied.
// Participants with no value yet are unranked: Scored is false and Rank 0.
type PreviewLine struct {
	ParticipantID int                `json:"participant_id"`
	Number        string             `json:"number"`
	Scored        bool               `json:"scored"`
	Rank          int                `json:"rank"`
	Total         float64            `json:"total"`
	Categories    map[string]float64 `json:"categories,omitempty"`
	Complete      bool               `json:"complete"`
}

// Contests lists the contests of the judge's event with their submission state
func (s *ScoringService) Contests(ctx context.Context, judge models.Judge) ([]ContestSummary, error) {
	contests, err := s.repo.ListContests(ctx, judge.EventID)
	if err != nil {
		return nil, storeError(err, "failed to load contests", nil)
	}
	out := make([]ContestSummary, 0, len(contests))
	for _, c := range contests {
		summary := ContestSummary{Contest: c}
		sub, err := s.repo.GetSubmission(ctx, judge.ID, c.ID)
		switch {
		case err == nil:
			summary.Submitted = true
			summary.SubmittedAt = &sub.SubmittedAt
		case !stderrors.Is(err, repository.ErrNotFound):
			return nil, storeError(err, "failed to load submission", nil)
		}
		out = append(out, summary)
	}
	return out, nil
}

// Scoresheet returns the judge's view of a contest. Participants outside
// the judge's access overrides are left out. Standings are live totals
// over the judge's scope: their own scores, or every judge's for a chairman.
func (s *ScoringService) Scoresheet(ctx context.Context, judge models.Judge, contestID int) (*Scoresheet, error) {
	sh, err := loadSheet(ctx, s.repo, judge, contestID)
	if err != nil {
		return nil, err
	}

	visible := sh.access.Filter(sh.participants)
	out := &Scoresheet{
		Contest:      sh.contest,
		Criteria:     sh.criteria,
		Participants: visible,
		Scores:       sh.scores,
		Permissions:  make(map[int]scoring.Decision, len(sh.criteria)),
		Submitted:    sh.submitted(),
	}
	if out.Scores == nil {
		out.Scores = []models.Score{}
	}
	if sh.submission != nil {
		out.SubmittedAt = &sh.submission.SubmittedAt
	}
	for _, c := range sh.criteria {
		out.Permissions[c.ID] = sh.decision(c.ID)
	}

	scope := scoring.ScopeFor(judge)
	scores := sh.scores
	if scope.All {
		if scores, err = s.repo.ListContestScores(ctx, contestID); err != nil {
			return nil, storeError(err, "failed to load scores", nil)
		}
	}
	out.Standings = scoring.ContestRanking(scoring.ContestData{
		Contest:      sh.contest,
		Criteria:     sh.criteria,
		Participants: visible,
		Scores:       scores,
	}, scope, scoring.SourceLive)
	return out, nil
}

// SaveScore stores or clears one cell. A cell the judge may not edit is
// left untouched and reported as locked; that is not an error.
func (s *ScoringService) SaveScore(ctx context.Context, judge models.Judge, participantID, criterionID int, raw *string) (*SaveResult, error) {
	p, err := s.repo.GetParticipant(ctx, participantID)
	if err != nil {
		s.metrics.ScoreSave(OutcomeRejected)
		return nil, storeError(err, "failed to load participant", ErrParticipantMissing)
	}
	sh, err := loadSheet(ctx, s.repo, judge, p.ContestID)
	if err != nil {
		return nil, err
	}
	c, ok := sh.criterion(criterionID)
	if !ok {
		s.metrics.ScoreSave(OutcomeRejected)
		return nil, ErrCriterionMissing
	}

	d := sh.decision(c.ID)
	if !sh.access.Allows(*p) {
		s.metrics.ScoreSave(OutcomeRejected)
		return nil, ErrNoAccess
	}
	if !d.Allowed {
		s.metrics.ScoreSave(OutcomeLocked)
		s.log.Debug("score edit ignored, criterion locked",
			"judge_id", judge.ID, "participant_id", participantID, "criterion_id", criterionID, "tier", d.Tier.String())
		return &SaveResult{Status: OutcomeLocked, Decision: d}, nil
	}

	if raw == nil || strings.TrimSpace(*raw) == "" {
		if err := s.repo.DeleteScore(ctx, judge.ID, participantID, criterionID); err != nil {
			s.metrics.ScoreSave(OutcomeRejected)
			return nil, storeError(err, "failed to clear score", nil)
		}
		s.metrics.ScoreSave(OutcomeCleared)
		s.log.Info("score cleared", "judge_id", judge.ID, "participant_id", participantID, "criterion_id", criterionID)
		return &SaveResult{Status: OutcomeCleared, Decision: d}, nil
	}

	value, err := scoring.ParseRaw(*raw, c, sh.contest.ScoringType)
	if err != nil {
		s.metrics.ScoreSave(OutcomeRejected)
		return nil, err
	}
	score, err := s.repo.UpsertScore(ctx, judge.ID, participantID, criterionID, value)
	if err != nil {
		s.metrics.ScoreSave(OutcomeRejected)
		s.log.Error("score save failed", "judge_id", judge.ID, "participant_id", participantID, "error", err)
		return nil, storeError(err, "failed to save score", nil)
	}
	s.metrics.ScoreSave(OutcomeSaved)
	s.log.Info("score saved",
		"judge_id", judge.ID, "participant_id", participantID, "criterion_id", criterionID, "value", value)
	return &SaveResult{Status: OutcomeSaved, Score: score, Decision: d}, nil
}

// Preview computes the judge's own totals with pending edits overlaid on
// persisted scores. Nothing is written.
func (s *ScoringService) Preview(ctx context.Context, judge models.Judge, contestID int, pending []PendingScore) ([]PreviewLine, error) {
	sh, err := loadSheet(ctx, s.repo, judge, contestID)
	if err != nil {
		return nil, err
	}
	overlay, _, err := sh.pending(pending)
	if err != nil {
		return nil, err
	}
	set := scoring.NewScoreSet(sh.scores).WithPending(overlay)

	visible := sh.access.Filter(sh.participants)
	rows := make([]scoring.Row, 0, len(visible))
	var unscored []models.Participant
	byID := make(map[int]models.Participant, len(visible))
	for _, p := range visible {
		byID[p.ID] = p
		total, ok := scoring.ParticipantTotal(set, p.ID, sh.criteria, sh.contest.ScoringType)
		if !ok {
			unscored = append(unscored, p)
			continue
		}
		rows = append(rows, scoring.Row{ParticipantID: p.ID, Number: p.Number, Total: total})
	}

	complete := func(participantID int) bool {
		for _, c := range sh.criteria {
			if _, ok := set.Value(scoring.CellKey{ParticipantID: participantID, CriterionID: c.ID}); !ok {
				return false
			}
		}
		return true
	}

	lines := make([]PreviewLine, 0, len(visible))
	for _, r := range scoring.Rank(rows) {
		lines = append(lines, PreviewLine{
			ParticipantID: r.ParticipantID,
			Number:        byID[r.ParticipantID].Number,
			Scored:        true,
			Rank:          r.Rank,
			Total:         r.Total,
			Categories:    scoring.CategorySubtotals(set, r.ParticipantID, sh.criteria, sh.contest.ScoringType),
			Complete:      complete(r.ParticipantID),
		})
	}
	for _, p := range unscored {
		lines = append(lines, PreviewLine{ParticipantID: p.ID, Number: p.Number})
	}
	return lines, nil
}
