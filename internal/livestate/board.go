package livestate

import (
	"context"
	"sync"

	"github.com/abrezinsky/scoretally/internal/logger"
	"github.com/abrezinsky/scoretally/internal/models"
	"github.com/abrezinsky/scoretally/internal/realtime"
	"github.com/abrezinsky/scoretally/internal/scoring"
)

// Tables the board tracks
var Tables = []string{
	models.TableContests,
	models.TableCriteria,
	models.TableParticipants,
	models.TableJudges,
	models.TableScores,
	models.TableJudgeParticipantTotals,
	models.TableJudgeContestSubmission,
}

// Source is the read side of the store used to seed the board
type Source interface {
	ListContests(ctx context.Context, eventID int) ([]models.Contest, error)
	ListCriteria(ctx context.Context, contestID int) ([]models.Criterion, error)
	ListParticipants(ctx context.Context, contestID int) ([]models.Participant, error)
	ListJudges(ctx context.Context, eventID int) ([]models.Judge, error)
	ListContestScores(ctx context.Context, contestID int) ([]models.Score, error)
	ListContestTotals(ctx context.Context, contestID int) ([]models.JudgeParticipantTotal, error)
	ListContestSubmissions(ctx context.Context, contestID int) ([]models.JudgeContestSubmission, error)
}

// Subscriber is the change feed
type Subscriber interface {
	Subscribe(filter realtime.Filter, callback func(models.ChangeEvent)) *realtime.Subscription
}

// Publisher receives every applied change and every recomputed tabulation
type Publisher interface {
	PublishChange(ev models.ChangeEvent)
	PublishTabulation(contestID int, tab scoring.Tabulation)
}

type contestState struct {
	contest      *models.Contest
	criteria     map[int]models.Criterion
	participants map[int]models.Participant
	scores       map[int]models.Score
	totals       map[int]models.JudgeParticipantTotal
	submissions  map[int]models.JudgeContestSubmission
	tabulation   *scoring.Tabulation
}

func newContestState() *contestState {
	return &contestState{
		criteria:     make(map[int]models.Criterion),
		participants: make(map[int]models.Participant),
		scores:       make(map[int]models.Score),
		totals:       make(map[int]models.JudgeParticipantTotal),
		submissions:  make(map[int]models.JudgeContestSubmission),
	}
}

// Board is the in-memory row cache of one or more events. Every row is
// held by primary key and the latest delivered version wins. Tabulations
// are always rebuilt from the full row set of a contest.
type Board struct {
	log logger.Logger
	pub Publisher

	mu       sync.RWMutex
	contests map[int]*contestState
	judges   map[int]models.Judge
}

// NewBoard creates an empty board. pub may be nil.
func NewBoard(log logger.Logger, pub Publisher) *Board {
	return &Board{
		log:      log,
		pub:      pub,
		contests: make(map[int]*contestState),
		judges:   make(map[int]models.Judge),
	}
}

// Load seeds the board with every contest of an event, replacing whatever
// the board held for those contests
func (b *Board) Load(ctx context.Context, src Source, eventID int) error {
	contests, err := src.ListContests(ctx, eventID)
	if err != nil {
		return err
	}
	judges, err := src.ListJudges(ctx, eventID)
	if err != nil {
		return err
	}

	loaded := make(map[int]*contestState, len(contests))
	for _, c := range contests {
		st := newContestState()
		contest := c
		st.contest = &contest

		criteria, err := src.ListCriteria(ctx, c.ID)
		if err != nil {
			return err
		}
		for _, row := range criteria {
			st.criteria[row.ID] = row
		}
		participants, err := src.ListParticipants(ctx, c.ID)
		if err != nil {
			return err
		}
		for _, row := range participants {
			st.participants[row.ID] = row
		}
		scores, err := src.ListContestScores(ctx, c.ID)
		if err != nil {
			return err
		}
		for _, row := range scores {
			st.scores[row.ID] = row
		}
		totals, err := src.ListContestTotals(ctx, c.ID)
		if err != nil {
			return err
		}
		for _, row := range totals {
			st.totals[row.ID] = row
		}
		subs, err := src.ListContestSubmissions(ctx, c.ID)
		if err != nil {
			return err
		}
		for _, row := range subs {
			st.submissions[row.ID] = row
		}
		loaded[c.ID] = st
	}

	b.mu.Lock()
	for _, j := range judges {
		b.judges[j.ID] = j
	}
	for id, st := range loaded {
		b.contests[id] = st
		st.recompute(b.judgesLocked())
	}
	b.mu.Unlock()

	b.log.Info("live state loaded", "event_id", eventID, "contests", len(contests))
	return nil
}

// Run feeds change events into the board until ctx is done. Events are
// applied one at a time on the subscription's goroutine.
func (b *Board) Run(ctx context.Context, feed Subscriber) error {
	sub := feed.Subscribe(realtime.Filter{Tables: Tables}, b.handle)
	defer sub.Close()

	select {
	case <-ctx.Done():
	case <-sub.Done():
	}
	return nil
}

// SetPublisher replaces the publisher. A nil pub stops publishing.
func (b *Board) SetPublisher(pub Publisher) {
	b.mu.Lock()
	b.pub = pub
	b.mu.Unlock()
}

func (b *Board) publisher() Publisher {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pub
}

func (b *Board) handle(ev models.ChangeEvent) {
	contestID, changed := b.Apply(ev)
	pub := b.publisher()
	if pub == nil {
		return
	}
	pub.PublishChange(ev)
	if !changed || contestID == 0 {
		return
	}
	if tab, ok := b.Snapshot(contestID); ok {
		pub.PublishTabulation(contestID, tab)
	}
}

// Apply folds one change into the board and recomputes the affected
// contest. It returns that contest and whether its tabulation was rebuilt.
func (b *Board) Apply(ev models.ChangeEvent) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ev.Table == models.TableJudges {
		if ev.Op == models.OpDelete {
			delete(b.judges, ev.Key)
		} else if j, ok := ev.Row.(models.Judge); ok {
			b.judges[ev.Key] = j
		}
		return 0, false
	}

	contestID := ev.ContestID
	if ev.Table == models.TableContests {
		contestID = ev.Key
	}
	if contestID == 0 {
		b.log.Debug("live state ignored unscoped change", "table", ev.Table, "key", ev.Key)
		return 0, false
	}

	if ev.Table == models.TableContests && ev.Op == models.OpDelete {
		delete(b.contests, contestID)
		return contestID, false
	}

	st, ok := b.contests[contestID]
	if !ok {
		st = newContestState()
		b.contests[contestID] = st
	}

	if !st.apply(ev) {
		b.log.Debug("live state ignored change", "table", ev.Table, "key", ev.Key, "op", ev.Op)
		return contestID, false
	}
	return contestID, st.recompute(b.judgesLocked())
}

func (st *contestState) apply(ev models.ChangeEvent) bool {
	del := ev.Op == models.OpDelete
	switch ev.Table {
	case models.TableContests:
		c, ok := ev.Row.(models.Contest)
		if !ok {
			return false
		}
		st.contest = &c
	case models.TableCriteria:
		return put(st.criteria, ev.Key, ev.Row, del)
	case models.TableParticipants:
		return put(st.participants, ev.Key, ev.Row, del)
	case models.TableScores:
		return put(st.scores, ev.Key, ev.Row, del)
	case models.TableJudgeParticipantTotals:
		return put(st.totals, ev.Key, ev.Row, del)
	case models.TableJudgeContestSubmission:
		return put(st.submissions, ev.Key, ev.Row, del)
	default:
		return false
	}
	return true
}

// put stores row under key, or removes key on delete
func put[T any](m map[int]T, key int, row any, del bool) bool {
	if del {
		delete(m, key)
		return true
	}
	v, ok := row.(T)
	if !ok {
		return false
	}
	m[key] = v
	return true
}

// recompute rebuilds the official tabulation of the contest. It reports
// false while the contest row itself has not arrived.
func (st *contestState) recompute(judges []models.Judge) bool {
	if st.contest == nil {
		return false
	}
	tab := scoring.ContestRanking(st.data(judges), scoring.AllJudges(), scoring.SourceTotals)
	st.tabulation = &tab
	return true
}

func (st *contestState) data(judges []models.Judge) scoring.ContestData {
	d := scoring.ContestData{
		Criteria:     values(st.criteria),
		Participants: values(st.participants),
		Judges:       judges,
		Scores:       values(st.scores),
		Totals:       values(st.totals),
	}
	if st.contest != nil {
		d.Contest = *st.contest
	}
	scoring.SortCriteria(d.Criteria)
	return d
}

func values[T any](m map[int]T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func (b *Board) judgesLocked() []models.Judge {
	return values(b.judges)
}

// Snapshot returns the last computed tabulation of a contest
func (b *Board) Snapshot(contestID int) (scoring.Tabulation, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.contests[contestID]
	if !ok || st.tabulation == nil {
		return scoring.Tabulation{}, false
	}
	return *st.tabulation, true
}

// Data returns a copy of the rows held for a contest
func (b *Board) Data(contestID int) (scoring.ContestData, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.contests[contestID]
	if !ok || st.contest == nil {
		return scoring.ContestData{}, false
	}
	return st.data(b.judgesLocked()), true
}

// Submitted reports whether a judge's submission marker for a contest has
// been seen
func (b *Board) Submitted(judgeID, contestID int) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.contests[contestID]
	if !ok {
		return false
	}
	for _, s := range st.submissions {
		if s.JudgeID == judgeID {
			return true
		}
	}
	return false
}
