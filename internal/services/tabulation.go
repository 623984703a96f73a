package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/abrezinsky/scoretally/internal/logger"
	"github.com/abrezinsky/scoretally/internal/models"
	"github.com/abrezinsky/scoretally/internal/scoring"
)

// TabulationServiceRepository defines the repository methods needed by TabulationService
type TabulationServiceRepository interface {
	GetContest(ctx context.Context, id int) (*models.Contest, error)
	ListContests(ctx context.Context, eventID int) ([]models.Contest, error)
	ListCriteria(ctx context.Context, contestID int) ([]models.Criterion, error)
	ListEventCriteria(ctx context.Context, eventID int) ([]models.Criterion, error)
	ListParticipants(ctx context.Context, contestID int) ([]models.Participant, error)
	ListJudges(ctx context.Context, eventID int) ([]models.Judge, error)
	ListContestScores(ctx context.Context, contestID int) ([]models.Score, error)
	ListContestTotals(ctx context.Context, contestID int) ([]models.JudgeParticipantTotal, error)
	ListContestSubmissions(ctx context.Context, contestID int) ([]models.JudgeContestSubmission, error)
	ListDivisionPermissions(ctx context.Context, judgeID, contestID int) ([]models.DivisionPermission, error)
	ListParticipantPermissions(ctx context.Context, judgeID, contestID int) ([]models.ParticipantPermission, error)
	GetAward(ctx context.Context, id int) (*models.Award, error)
	ListAwards(ctx context.Context, eventID int, activeOnly bool) ([]models.Award, error)
}

// TabulationService builds rankings for tabulators, chairmen and displays
type TabulationService struct {
	log     logger.Logger
	repo    TabulationServiceRepository
	metrics Metrics
}

// NewTabulationService creates a new TabulationService. metrics may be nil.
func NewTabulationService(log logger.Logger, repo TabulationServiceRepository, metrics Metrics) *TabulationService {
	return &TabulationService{log: log, repo: repo, metrics: metricsOrNop(metrics)}
}

// Progress is the scoring state of every judge in a contest
type Progress struct {
	ContestID int             `json:"contest_id"`
	Judges    []JudgeProgress `json:"judges"`
}

// JudgeProgress counts one judge's filled cells against the cells they owe
type JudgeProgress struct {
	JudgeID     int              `json:"judge_id"`
	Username    string           `json:"username"`
	Name        string           `json:"name"`
	Role        models.JudgeRole `json:"role"`
	Scored      int              `json:"scored"`
	Required    int              `json:"required"`
	Complete    bool             `json:"complete"`
	Submitted   bool             `json:"submitted"`
	SubmittedAt *time.Time       `json:"submitted_at,omitempty"`
}

func (s *TabulationService) contestData(ctx context.Context, contestID int) (scoring.ContestData, error) {
	var d scoring.ContestData
	contest, err := s.repo.GetContest(ctx, contestID)
	if err != nil {
		return d, storeError(err, "failed to load contest", ErrContestNotFound)
	}
	d.Contest = *contest
	if d.Criteria, err = s.repo.ListCriteria(ctx, contestID); err != nil {
		return d, storeError(err, "failed to load criteria", nil)
	}
	if d.Participants, err = s.repo.ListParticipants(ctx, contestID); err != nil {
		return d, storeError(err, "failed to load participants", nil)
	}
	if d.Judges, err = s.repo.ListJudges(ctx, contest.EventID); err != nil {
		return d, storeError(err, "failed to load judges", nil)
	}
	if d.Scores, err = s.repo.ListContestScores(ctx, contestID); err != nil {
		return d, storeError(err, "failed to load scores", nil)
	}
	if d.Totals, err = s.repo.ListContestTotals(ctx, contestID); err != nil {
		return d, storeError(err, "failed to load totals", nil)
	}
	return d, nil
}

// ContestEventID returns the event a contest belongs to
func (s *TabulationService) ContestEventID(ctx context.Context, contestID int) (int, error) {
	contest, err := s.repo.GetContest(ctx, contestID)
	if err != nil {
		return 0, storeError(err, "failed to load contest", ErrContestNotFound)
	}
	return contest.EventID, nil
}

// AwardEventID returns the event an award belongs to
func (s *TabulationService) AwardEventID(ctx context.Context, awardID int) (int, error) {
	award, err := s.repo.GetAward(ctx, awardID)
	if err != nil {
		return 0, storeError(err, "failed to load award", ErrAwardNotFound)
	}
	return award.EventID, nil
}

// ContestRanking ranks a contest within scope. SourceTotals uses the
// totals judges have submitted; SourceLive recomputes from raw scores.
func (s *TabulationService) ContestRanking(ctx context.Context, contestID int, scope scoring.Scope, source scoring.Source) (*scoring.Tabulation, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveTabulation("contest", time.Since(start)) }()

	data, err := s.contestData(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if source != scoring.SourceLive {
		source = scoring.SourceTotals
	}
	tab := scoring.ContestRanking(data, scope, source)
	return &tab, nil
}

// AwardRankings ranks every active award of an event. Awards without a
// ranking are still listed, with the reason.
func (s *TabulationService) AwardRankings(ctx context.Context, eventID int, scope scoring.Scope) ([]scoring.AwardResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveTabulation("award", time.Since(start)) }()

	awards, err := s.repo.ListAwards(ctx, eventID, true)
	if err != nil {
		return nil, storeError(err, "failed to load awards", nil)
	}
	criteria, err := s.repo.ListEventCriteria(ctx, eventID)
	if err != nil {
		return nil, storeError(err, "failed to load criteria", nil)
	}
	contests, err := s.repo.ListContests(ctx, eventID)
	if err != nil {
		return nil, storeError(err, "failed to load contests", nil)
	}
	known := make(map[int]bool, len(contests))
	for _, c := range contests {
		known[c.ID] = true
	}

	cache := make(map[int]scoring.ContestData)
	results := make([]scoring.AwardResult, 0, len(awards))
	for _, a := range awards {
		res := scoring.ResolveAwardCriteria(a, criteria)
		var data scoring.ContestData
		if res.Ranked && known[res.ContestID] {
			var ok bool
			if data, ok = cache[res.ContestID]; !ok {
				if data, err = s.contestData(ctx, res.ContestID); err != nil {
					return nil, err
				}
				cache[res.ContestID] = data
			}
		}
		results = append(results, scoring.AwardRanking(a, res, data, scope))
	}
	return results, nil
}

// AwardRanking ranks one active award
func (s *TabulationService) AwardRanking(ctx context.Context, awardID int, scope scoring.Scope) (*scoring.AwardResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveTabulation("award", time.Since(start)) }()

	award, err := s.repo.GetAward(ctx, awardID)
	if err != nil {
		return nil, storeError(err, "failed to load award", ErrAwardNotFound)
	}
	if !award.Active {
		return nil, ErrAwardNotFound
	}
	criteria, err := s.repo.ListEventCriteria(ctx, award.EventID)
	if err != nil {
		return nil, storeError(err, "failed to load criteria", nil)
	}

	res := scoring.ResolveAwardCriteria(*award, criteria)
	var data scoring.ContestData
	if res.Ranked {
		data, err = s.contestData(ctx, res.ContestID)
		if err != nil && !stderrors.Is(err, ErrContestNotFound) {
			return nil, err
		}
	}
	out := scoring.AwardRanking(*award, res, data, scope)
	return &out, nil
}

// Progress reports, per judge of the contest's event, how many of the
// cells they are responsible for hold a score and whether they submitted
func (s *TabulationService) Progress(ctx context.Context, contestID int) (*Progress, error) {
	data, err := s.contestData(ctx, contestID)
	if err != nil {
		return nil, err
	}
	subs, err := s.repo.ListContestSubmissions(ctx, contestID)
	if err != nil {
		return nil, storeError(err, "failed to load submissions", nil)
	}
	submitted := make(map[int]models.JudgeContestSubmission, len(subs))
	for _, sub := range subs {
		submitted[sub.JudgeID] = sub
	}

	criteria := make(map[int]bool, len(data.Criteria))
	for _, c := range data.Criteria {
		criteria[c.ID] = true
	}

	out := &Progress{ContestID: contestID, Judges: make([]JudgeProgress, 0, len(data.Judges))}
	for _, j := range data.Judges {
		divisions, err := s.repo.ListDivisionPermissions(ctx, j.ID, contestID)
		if err != nil {
			return nil, storeError(err, "failed to load division access", nil)
		}
		participants, err := s.repo.ListParticipantPermissions(ctx, j.ID, contestID)
		if err != nil {
			return nil, storeError(err, "failed to load participant access", nil)
		}
		access := scoring.NewAccess(divisions, participants, j.ID, contestID)

		owed := make(map[int]bool)
		for _, p := range access.Filter(data.Participants) {
			owed[p.ID] = true
		}

		jp := JudgeProgress{
			JudgeID: j.ID, Username: j.Username, Name: j.Name, Role: j.Role,
			Required: len(owed) * len(data.Criteria),
		}
		for _, sc := range data.Scores {
			if sc.JudgeID == j.ID && owed[sc.ParticipantID] && criteria[sc.CriterionID] {
				jp.Scored++
			}
		}
		jp.Complete = jp.Scored >= jp.Required
		if sub, ok := submitted[j.ID]; ok {
			jp.Submitted = true
			at := sub.SubmittedAt
			jp.SubmittedAt = &at
		}
		out.Judges = append(out.Judges, jp)
	}
	return out, nil
}
