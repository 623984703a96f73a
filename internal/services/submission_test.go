package services_test

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/abrezinsky/scoretally/internal/errors"
	"github.com/abrezinsky/scoretally/internal/repository"
	"github.com/abrezinsky/scoretally/internal/scoring"
	"github.com/abrezinsky/scoretally/internal/services"
)

func TestSubmitAll_PersistsTotalsAndLocks(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	e.scoreGown(t, e.fx.Judge1)

	res, err := e.submission.SubmitAll(ctx, e.fx.Judge1, e.fx.Gown.ID, nil, nil)
	if err != nil {
		t.Fatalf("SubmitAll failed: %v", err)
	}
	if res.Targets != 3 || !res.MarkerAdded || res.Inserted != 3 {
		t.Errorf("unexpected result: %+v", res)
	}
	for _, p := range e.fx.GownEntrants {
		if res.Totals[p.ID] != 86 {
			t.Errorf("participant %s: expected 86, got %v", p.Number, res.Totals[p.ID])
		}
	}

	totals, err := e.repo.ListContestTotals(ctx, e.fx.Gown.ID)
	if err != nil {
		t.Fatalf("ListContestTotals failed: %v", err)
	}
	if len(totals) != 3 {
		t.Errorf("expected 3 persisted totals, got %d", len(totals))
	}

	sheet, err := e.scoring.Scoresheet(ctx, e.fx.Judge1, e.fx.Gown.ID)
	if err != nil {
		t.Fatalf("Scoresheet failed: %v", err)
	}
	if !sheet.Submitted {
		t.Error("expected sheet to be submitted")
	}
	for cid, d := range sheet.Permissions {
		if d.Allowed || d.Tier != scoring.TierSubmission {
			t.Errorf("criterion %d should be locked by submission, got %+v", cid, d)
		}
	}
}

func TestSubmitAll_MissingScoreWritesNothing(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	e.scoreGown(t, e.fx.Judge1)
	last, elegance := e.fx.GownEntrants[2], e.fx.GownCriteria[1]
	first, poise := e.fx.GownEntrants[0], e.fx.GownCriteria[0]
	if err := e.repo.DeleteScore(ctx, e.fx.Judge1.ID, last.ID, elegance.ID); err != nil {
		t.Fatalf("DeleteScore failed: %v", err)
	}

	_, err := e.submission.SubmitAll(ctx, e.fx.Judge1, e.fx.Gown.ID, nil, []services.PendingScore{
		{ParticipantID: first.ID, CriterionID: poise.ID, Value: str("50")},
	})
	if errors.KindOf(err) != errors.ErrValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), last.Number) || !strings.Contains(err.Error(), elegance.Name) {
		t.Errorf("error should name the missing cell: %v", err)
	}

	totals, _ := e.repo.ListContestTotals(ctx, e.fx.Gown.ID)
	if len(totals) != 0 {
		t.Errorf("expected no totals, got %d", len(totals))
	}
	if _, err := e.repo.GetSubmission(ctx, e.fx.Judge1.ID, e.fx.Gown.ID); !stderrors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected no submission marker, got %v", err)
	}
	if v, _ := e.score(t, e.fx.Judge1, first.ID, poise.ID); v != 80 {
		t.Errorf("pending edit must not be flushed on failure, stored value is %v", v)
	}
}

func TestSubmitAll_FlushesPending(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	e.scoreGown(t, e.fx.Judge1)
	last, elegance := e.fx.GownEntrants[2], e.fx.GownCriteria[1]
	if err := e.repo.DeleteScore(ctx, e.fx.Judge1.ID, last.ID, elegance.ID); err != nil {
		t.Fatalf("DeleteScore failed: %v", err)
	}

	res, err := e.submission.SubmitAll(ctx, e.fx.Judge1, e.fx.Gown.ID, nil, []services.PendingScore{
		{ParticipantID: last.ID, CriterionID: elegance.ID, Value: str("70")},
	})
	if err != nil {
		t.Fatalf("SubmitAll failed: %v", err)
	}
	if res.Totals[last.ID] != 74 {
		t.Errorf("expected 32+42=74, got %v", res.Totals[last.ID])
	}
	if v, ok := e.score(t, e.fx.Judge1, last.ID, elegance.ID); !ok || v != 70 {
		t.Errorf("pending edit not flushed: %v, %v", v, ok)
	}
}

func TestSubmitAll_DivisionScope(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	junior := e.fx.Divisions["Junior"]
	e.scoreGown(t, e.fx.Judge1)
	senior := e.fx.GownEntrants[2]
	for _, c := range e.fx.GownCriteria {
		if err := e.repo.DeleteScore(ctx, e.fx.Judge1.ID, senior.ID, c.ID); err != nil {
			t.Fatalf("DeleteScore failed: %v", err)
		}
	}

	res, err := e.submission.SubmitAll(ctx, e.fx.Judge1, e.fx.Gown.ID, &junior, nil)
	if err != nil {
		t.Fatalf("junior SubmitAll failed: %v", err)
	}
	if res.Targets != 2 || len(res.Totals) != 2 {
		t.Errorf("expected 2 junior targets, got %+v", res)
	}
	if _, ok := res.Totals[senior.ID]; ok {
		t.Error("senior participant must not be totalled")
	}
	if !res.MarkerAdded {
		t.Error("expected contest marker on first submission")
	}
}

func TestSubmitAll_UnassignedDivision(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	if err := e.permissions.SetDivisionAccess(ctx, e.fx.Judge1.ID, e.fx.Gown.ID, []int{e.fx.Divisions["Junior"]}); err != nil {
		t.Fatalf("SetDivisionAccess failed: %v", err)
	}
	senior := e.fx.Divisions["Senior"]

	_, err := e.submission.SubmitAll(ctx, e.fx.Judge1, e.fx.Gown.ID, &senior, nil)
	if errors.KindOf(err) != errors.ErrForbidden {
		t.Errorf("expected forbidden, got %v", err)
	}
}

func TestSubmitAll_TargetsAccessibleOnly(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	first := e.fx.GownEntrants[0]
	if err := e.permissions.SetParticipantAccess(ctx, e.fx.Judge1.ID, e.fx.Gown.ID, []int{first.ID}); err != nil {
		t.Fatalf("SetParticipantAccess failed: %v", err)
	}
	for _, c := range e.fx.GownCriteria {
		if _, err := e.repo.UpsertScore(ctx, e.fx.Judge1.ID, first.ID, c.ID, 60); err != nil {
			t.Fatalf("UpsertScore failed: %v", err)
		}
	}

	res, err := e.submission.SubmitAll(ctx, e.fx.Judge1, e.fx.Gown.ID, nil, nil)
	if err != nil {
		t.Fatalf("SubmitAll failed: %v", err)
	}
	if res.Targets != 1 || res.Totals[first.ID] != 60 {
		t.Errorf("expected only participant 1 at 60, got %+v", res)
	}
}

func TestSubmitAll_DropsLockedPending(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	e.scoreGown(t, e.fx.Judge1)
	first, poise := e.fx.GownEntrants[0], e.fx.GownCriteria[0]
	if _, err := e.permissions.SetScoringPermission(ctx, e.fx.Judge1.ID, e.fx.Gown.ID, &poise.ID, false); err != nil {
		t.Fatalf("SetScoringPermission failed: %v", err)
	}

	res, err := e.submission.SubmitAll(ctx, e.fx.Judge1, e.fx.Gown.ID, nil, []services.PendingScore{
		{ParticipantID: first.ID, CriterionID: poise.ID, Value: str("10")},
	})
	if err != nil {
		t.Fatalf("SubmitAll failed: %v", err)
	}
	if res.Dropped != 1 {
		t.Errorf("expected 1 dropped edit, got %d", res.Dropped)
	}
	if res.Totals[first.ID] != 86 {
		t.Errorf("locked edit leaked into total: %v", res.Totals[first.ID])
	}
}

func TestSubmitAll_ResubmitRefreshesTotals(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	e.scoreGown(t, e.fx.Judge1)
	if _, err := e.submission.SubmitAll(ctx, e.fx.Judge1, e.fx.Gown.ID, nil, nil); err != nil {
		t.Fatalf("first SubmitAll failed: %v", err)
	}
	if _, err := e.permissions.SetScoringPermission(ctx, e.fx.Judge1.ID, e.fx.Gown.ID, nil, true); err != nil {
		t.Fatalf("SetScoringPermission failed: %v", err)
	}

	first, poise := e.fx.GownEntrants[0], e.fx.GownCriteria[0]
	res, err := e.submission.SubmitAll(ctx, e.fx.Judge1, e.fx.Gown.ID, nil, []services.PendingScore{
		{ParticipantID: first.ID, CriterionID: poise.ID, Value: str("100")},
	})
	if err != nil {
		t.Fatalf("second SubmitAll failed: %v", err)
	}
	if res.MarkerAdded {
		t.Error("marker must only be added once")
	}
	if res.Replaced != 3 || res.Totals[first.ID] != 94 {
		t.Errorf("expected 3 replaced totals and 94, got %+v", res)
	}
}

func TestSubmitAll_StoreErrorWritesNothing(t *testing.T) {
	e, m := setupMock(t)
	ctx := context.Background()
	e.scoreGown(t, e.fx.Judge1)
	m.SubmitTotalsError = stderrors.New("disk full")

	_, err := e.submission.SubmitAll(ctx, e.fx.Judge1, e.fx.Gown.ID, nil, nil)
	if errors.KindOf(err) != errors.ErrStore {
		t.Fatalf("expected store error, got %v", err)
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("store error should carry the cause: %v", err)
	}
	if _, err := e.repo.GetSubmission(ctx, e.fx.Judge1.ID, e.fx.Gown.ID); !stderrors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected no submission, got %v", err)
	}
}

func TestSubmitAll_ChairmanTotalsOwnScores(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	e.scoreGown(t, e.fx.Chair)
	e.scoreGownFlat(t, e.fx.Judge1, 50)

	res, err := e.submission.SubmitAll(ctx, e.fx.Chair, e.fx.Gown.ID, nil, nil)
	if err != nil {
		t.Fatalf("chairman SubmitAll failed: %v", err)
	}
	if res.Totals[e.fx.GownEntrants[0].ID] != 86 {
		t.Errorf("chairman's persisted total should be their own 86, got %v", res.Totals[e.fx.GownEntrants[0].ID])
	}
}
