package scoring

import (
	"reflect"
	"testing"

	"github.com/abrezinsky/scoretally/internal/models"
)

func TestResolveAwardCriteria_CategoryExpansion(t *testing.T) {
	data := pointsContest()
	award := models.Award{ID: 1, Type: models.AwardCriteria, CriteriaIDs: models.IDList{5}}

	res := ResolveAwardCriteria(award, data.Criteria)

	if !res.Ranked {
		t.Fatalf("expected ranked award, got reason %q", res.Reason)
	}
	if res.ContestID != 1 {
		t.Errorf("expected contest inferred from criterion 5, got %d", res.ContestID)
	}
	if !reflect.DeepEqual(res.CriteriaIDs, models.IDList{5, 6, 7}) {
		t.Errorf("expected {5,6,7}, got %v", res.CriteriaIDs)
	}
}

func TestResolveAwardCriteria_UncategorisedStaysAlone(t *testing.T) {
	data := pointsContest()
	res := ResolveAwardCriteria(models.Award{Type: models.AwardCriteria, CriteriaIDs: models.IDList{8}}, data.Criteria)
	if !reflect.DeepEqual(res.CriteriaIDs, models.IDList{8}) {
		t.Errorf("expected {8}, got %v", res.CriteriaIDs)
	}
}

func TestResolveAwardCriteria_Unranked(t *testing.T) {
	data := pointsContest()
	other := 2

	tests := []struct {
		name   string
		award  models.Award
		reason string
	}{
		{"special", models.Award{Type: models.AwardSpecial, CriteriaIDs: models.IDList{5}}, ReasonSpecial},
		{"empty", models.Award{Type: models.AwardCriteria}, ReasonNoCriteria},
		{"unknown criteria", models.Award{Type: models.AwardCriteria, CriteriaIDs: models.IDList{404}}, ReasonNoCriteria},
		{"pinned to a different contest", models.Award{Type: models.AwardCriteria, ContestID: &other, CriteriaIDs: models.IDList{5}}, ReasonNoCriteria},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ResolveAwardCriteria(tt.award, data.Criteria)
			if res.Ranked {
				t.Fatal("expected unranked award")
			}
			if res.Reason != tt.reason {
				t.Errorf("expected reason %q, got %q", tt.reason, res.Reason)
			}

			result := AwardRanking(tt.award, res, data, AllJudges())
			if result.Ranking != nil {
				t.Error("expected no ranking for an unranked award")
			}
		})
	}
}

func TestAwardRanking_SumsExpandedCriteria(t *testing.T) {
	data := pointsContest()
	data.Scores = []models.Score{
		{JudgeID: 1, ParticipantID: 100, CriterionID: 5, Value: 10},
		{JudgeID: 1, ParticipantID: 100, CriterionID: 6, Value: 20},
		{JudgeID: 1, ParticipantID: 100, CriterionID: 7, Value: 15},
		{JudgeID: 1, ParticipantID: 100, CriterionID: 8, Value: 99},
		{JudgeID: 2, ParticipantID: 100, CriterionID: 5, Value: 5},
		{JudgeID: 1, ParticipantID: 101, CriterionID: 5, Value: 50},
	}
	award := models.Award{ID: 3, Type: models.AwardCriteria, CriteriaIDs: models.IDList{5}}
	res := ResolveAwardCriteria(award, data.Criteria)

	result := AwardRanking(award, res, data, SingleJudge(1))
	if result.Ranking == nil {
		t.Fatal("expected a ranking")
	}
	standings := result.Ranking.Standings
	if standings[0].ParticipantID != 101 || standings[0].Total != 50 {
		t.Errorf("unexpected first standing %+v", standings[0])
	}
	// 10 + 20 + 15 over the Talent category; interview excluded
	if standings[1].ParticipantID != 100 || standings[1].Total != 45 {
		t.Errorf("expected participant 100 at 45, got %+v", standings[1])
	}

	chair := AwardRanking(award, res, data, AllJudges())
	for _, s := range chair.Ranking.Standings {
		if s.ParticipantID == 100 && s.Total != 50 {
			t.Errorf("expected chairman award total 45+5=50, got %v", s.Total)
		}
	}
}

func TestAwardRanking_WrongContestData(t *testing.T) {
	data := pointsContest()
	award := models.Award{Type: models.AwardCriteria, CriteriaIDs: models.IDList{5}}
	res := ResolveAwardCriteria(award, data.Criteria)

	data.Contest.ID = 2
	result := AwardRanking(award, res, data, AllJudges())
	if result.Ranking != nil || result.Resolution.Reason != ReasonNoContest {
		t.Errorf("expected no ranking with mismatched contest, got %+v", result.Resolution)
	}
}
