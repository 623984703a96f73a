package scoring

import (
	"sort"

	"github.com/abrezinsky/scoretally/internal/models"
)

// Scope selects whose totals make up a participant's effective total: one
// judge's own, or the sum over every judge (chairman and tabulator views).
type Scope struct {
	All     bool `json:"all_judges"`
	JudgeID int  `json:"judge_id,omitempty"`
}

// AllJudges is the chairman scope
func AllJudges() Scope { return Scope{All: true} }

// SingleJudge is an individual judge's scope
func SingleJudge(judgeID int) Scope { return Scope{JudgeID: judgeID} }

// ScopeFor returns the scope a judge's views aggregate over
func ScopeFor(j models.Judge) Scope {
	if j.IsChairman() {
		return AllJudges()
	}
	return SingleJudge(j.ID)
}

// Includes reports whether judgeID contributes to totals in this scope
func (s Scope) Includes(judgeID int) bool {
	return s.All || s.JudgeID == judgeID
}

// Source selects the inputs of a tabulation
type Source string

const (
	// SourceTotals uses the per-judge totals persisted at submission
	SourceTotals Source = "totals"
	// SourceLive recomputes per-judge totals from raw scores
	SourceLive Source = "live"
)

// ContestData is everything needed to tabulate one contest
type ContestData struct {
	Contest      models.Contest
	Criteria     []models.Criterion
	Participants []models.Participant
	Judges       []models.Judge
	Scores       []models.Score
	Totals       []models.JudgeParticipantTotal
}

// Standing is one participant's line in a tabulation
type Standing struct {
	ParticipantID int                `json:"participant_id"`
	Number        string             `json:"number"`
	FullName      string             `json:"full_name"`
	DivisionID    int                `json:"division_id"`
	Rank          int                `json:"rank"`
	Total         float64            `json:"total"`
	JudgeTotals   map[int]float64    `json:"judge_totals"`
	Categories    map[string]float64 `json:"categories,omitempty"`
}

// Tabulation is a ranked contest view. Unscored participants are listed
// separately and never ranked.
type Tabulation struct {
	ContestID   int                `json:"contest_id"`
	ScoringType models.ScoringType `json:"scoring_type"`
	Source      Source             `json:"source"`
	Scope       Scope              `json:"scope"`
	Standings   []Standing         `json:"standings"`
	Unscored    []Standing         `json:"unscored"`
}

// EffectiveTotals sums persisted per-judge totals over the scope. A
// participant appears only when at least one in-scope judge has a total.
func EffectiveTotals(totals []models.JudgeParticipantTotal, contestID int, scope Scope) map[int]float64 {
	perParticipant := make(map[int][]float64)
	for _, t := range totals {
		if t.ContestID != contestID || !scope.Includes(t.JudgeID) {
			continue
		}
		perParticipant[t.ParticipantID] = append(perParticipant[t.ParticipantID], t.Total)
	}
	out := make(map[int]float64, len(perParticipant))
	for pid, values := range perParticipant {
		out[pid] = SumRounded(values...)
	}
	return out
}

// JudgeScoreSets splits raw scores into one ScoreSet per judge in scope
func JudgeScoreSets(scores []models.Score, scope Scope) map[int]ScoreSet {
	byJudge := make(map[int][]models.Score)
	for _, s := range scores {
		if scope.Includes(s.JudgeID) {
			byJudge[s.JudgeID] = append(byJudge[s.JudgeID], s)
		}
	}
	sets := make(map[int]ScoreSet, len(byJudge))
	for jid, rows := range byJudge {
		sets[jid] = NewScoreSet(rows)
	}
	return sets
}

// LiveJudgeTotals computes each in-scope judge's total per participant from
// raw scores restricted to criteria
func LiveJudgeTotals(sets map[int]ScoreSet, participants []models.Participant, criteria []models.Criterion, scoringType models.ScoringType) map[int]map[int]float64 {
	out := make(map[int]map[int]float64)
	for jid, set := range sets {
		for _, p := range participants {
			total, ok := ParticipantTotal(set, p.ID, criteria, scoringType)
			if !ok {
				continue
			}
			if out[p.ID] == nil {
				out[p.ID] = make(map[int]float64)
			}
			out[p.ID][jid] = total
		}
	}
	return out
}

// ContestRanking tabulates a contest in the given scope. Per-judge totals
// are rounded, then summed across the scope and rounded again.
func ContestRanking(data ContestData, scope Scope, source Source) Tabulation {
	criteria := criteriaOf(data.Criteria, data.Contest.ID)
	participants := participantsOf(data.Participants, data.Contest.ID)
	sets := JudgeScoreSets(data.Scores, scope)

	var judgeTotals map[int]map[int]float64
	if source == SourceTotals {
		judgeTotals = make(map[int]map[int]float64)
		for _, t := range data.Totals {
			if t.ContestID != data.Contest.ID || !scope.Includes(t.JudgeID) {
				continue
			}
			if judgeTotals[t.ParticipantID] == nil {
				judgeTotals[t.ParticipantID] = make(map[int]float64)
			}
			judgeTotals[t.ParticipantID][t.JudgeID] = t.Total
		}
	} else {
		judgeTotals = LiveJudgeTotals(sets, participants, criteria, data.Contest.ScoringType)
	}

	tab := build(data.Contest, participants, judgeTotals, func(pid int) map[string]float64 {
		return scopedCategories(sets, pid, criteria, data.Contest.ScoringType)
	})
	tab.Source = source
	tab.Scope = scope
	return tab
}

func build(contest models.Contest, participants []models.Participant, judgeTotals map[int]map[int]float64, categories func(pid int) map[string]float64) Tabulation {
	tab := Tabulation{
		ContestID:   contest.ID,
		ScoringType: contest.ScoringType,
		Standings:   []Standing{},
		Unscored:    []Standing{},
	}

	byID := make(map[int]models.Participant, len(participants))
	rows := make([]Row, 0, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
		perJudge, ok := judgeTotals[p.ID]
		if !ok || len(perJudge) == 0 {
			tab.Unscored = append(tab.Unscored, standingFor(p, nil))
			continue
		}
		values := make([]float64, 0, len(perJudge))
		for _, v := range perJudge {
			values = append(values, v)
		}
		rows = append(rows, Row{ParticipantID: p.ID, Number: p.Number, Total: SumRounded(values...)})
	}

	for _, r := range Rank(rows) {
		s := standingFor(byID[r.ParticipantID], judgeTotals[r.ParticipantID])
		s.Rank = r.Rank
		s.Total = r.Total
		if categories != nil {
			s.Categories = categories(r.ParticipantID)
		}
		tab.Standings = append(tab.Standings, s)
	}
	sort.SliceStable(tab.Unscored, func(i, j int) bool {
		return numberLess(
			Row{ParticipantID: tab.Unscored[i].ParticipantID, Number: tab.Unscored[i].Number},
			Row{ParticipantID: tab.Unscored[j].ParticipantID, Number: tab.Unscored[j].Number},
		)
	})
	return tab
}

func standingFor(p models.Participant, judgeTotals map[int]float64) Standing {
	jt := make(map[int]float64, len(judgeTotals))
	for k, v := range judgeTotals {
		jt[k] = v
	}
	return Standing{
		ParticipantID: p.ID,
		Number:        p.Number,
		FullName:      p.FullName,
		DivisionID:    p.DivisionID,
		JudgeTotals:   jt,
	}
}

func scopedCategories(sets map[int]ScoreSet, pid int, criteria []models.Criterion, scoringType models.ScoringType) map[string]float64 {
	perCategory := make(map[string][]float64)
	for _, set := range sets {
		for cat, v := range CategorySubtotals(set, pid, criteria, scoringType) {
			perCategory[cat] = append(perCategory[cat], v)
		}
	}
	if len(perCategory) == 0 {
		return nil
	}
	out := make(map[string]float64, len(perCategory))
	for cat, values := range perCategory {
		out[cat] = SumRounded(values...)
	}
	return out
}

func criteriaOf(criteria []models.Criterion, contestID int) []models.Criterion {
	out := make([]models.Criterion, 0, len(criteria))
	for _, c := range criteria {
		if c.ContestID == contestID {
			out = append(out, c)
		}
	}
	return out
}

func participantsOf(participants []models.Participant, contestID int) []models.Participant {
	out := make([]models.Participant, 0, len(participants))
	for _, p := range participants {
		if p.ContestID == contestID {
			out = append(out, p)
		}
	}
	return out
}

// SortCriteria orders criteria by display order, then id
func SortCriteria(criteria []models.Criterion) {
	sort.Slice(criteria, func(i, j int) bool {
		if criteria[i].DisplayOrder != criteria[j].DisplayOrder {
			return criteria[i].DisplayOrder < criteria[j].DisplayOrder
		}
		return criteria[i].ID < criteria[j].ID
	})
}
