package scoring

import "github.com/abrezinsky/scoretally/internal/models"

// Reasons an award carries no ranking
const (
	ReasonSpecial    = "special award"
	ReasonNoCriteria = "no criteria resolved"
	ReasonNoContest  = "contest not found"
)

// AwardCriteria is the resolved scoring basis of an award
type AwardCriteria struct {
	AwardID     int           `json:"award_id"`
	ContestID   int           `json:"contest_id"`
	CriteriaIDs models.IDList `json:"criteria_ids"`
	Ranked      bool          `json:"ranked"`
	Reason      string        `json:"reason,omitempty"`
}

// ResolveAwardCriteria turns an award definition into the criteria set its
// ranking uses. Configured criteria are expanded to every criterion of the
// same contest sharing a category with one of them. An unpinned award takes
// its contest from its first configured criterion; criteria of other
// contests are ignored. The result lists criteria in the order of the
// criteria argument.
func ResolveAwardCriteria(award models.Award, criteria []models.Criterion) AwardCriteria {
	res := AwardCriteria{AwardID: award.ID, CriteriaIDs: models.IDList{}}
	if award.ContestID != nil {
		res.ContestID = *award.ContestID
	}
	if award.Type == models.AwardSpecial {
		res.Reason = ReasonSpecial
		return res
	}

	byID := make(map[int]models.Criterion, len(criteria))
	for _, c := range criteria {
		byID[c.ID] = c
	}

	if res.ContestID == 0 {
		for _, id := range award.CriteriaIDs {
			if c, ok := byID[id]; ok {
				res.ContestID = c.ContestID
				break
			}
		}
	}

	seeds := make(map[int]struct{})
	categories := make(map[string]struct{})
	for _, id := range award.CriteriaIDs {
		c, ok := byID[id]
		if !ok || c.ContestID != res.ContestID {
			continue
		}
		seeds[id] = struct{}{}
		if c.Category != "" {
			categories[c.Category] = struct{}{}
		}
	}

	ids := make([]int, 0, len(seeds))
	for _, c := range criteria {
		if c.ContestID != res.ContestID {
			continue
		}
		_, seeded := seeds[c.ID]
		_, sameCategory := categories[c.Category]
		if seeded || (c.Category != "" && sameCategory) {
			ids = append(ids, c.ID)
		}
	}
	res.CriteriaIDs = models.NewIDList(ids...)

	if len(res.CriteriaIDs) == 0 {
		res.Reason = ReasonNoCriteria
		return res
	}
	res.Ranked = true
	return res
}

// AwardResult is an award's ranking, or the reason it has none
type AwardResult struct {
	Award      models.Award  `json:"award"`
	Resolution AwardCriteria `json:"resolution"`
	Ranking    *Tabulation   `json:"ranking,omitempty"`
}

// AwardRanking recomputes totals from raw scores over the resolved criteria
// only, per judge then summed over the scope. Unranked awards return no
// ranking at all.
func AwardRanking(award models.Award, res AwardCriteria, data ContestData, scope Scope) AwardResult {
	out := AwardResult{Award: award, Resolution: res}
	if !res.Ranked {
		return out
	}
	if data.Contest.ID != res.ContestID {
		out.Resolution.Ranked = false
		out.Resolution.Reason = ReasonNoContest
		return out
	}

	restricted := make([]models.Criterion, 0, len(res.CriteriaIDs))
	for _, c := range data.Criteria {
		if c.ContestID == res.ContestID && res.CriteriaIDs.Contains(c.ID) {
			restricted = append(restricted, c)
		}
	}

	participants := participantsOf(data.Participants, data.Contest.ID)
	sets := JudgeScoreSets(data.Scores, scope)
	judgeTotals := LiveJudgeTotals(sets, participants, restricted, data.Contest.ScoringType)

	tab := build(data.Contest, participants, judgeTotals, nil)
	tab.Source = SourceLive
	tab.Scope = scope
	out.Ranking = &tab
	return out
}
