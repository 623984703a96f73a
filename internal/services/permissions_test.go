package services_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/abrezinsky/scoretally/internal/errors"
	"github.com/abrezinsky/scoretally/internal/scoring"
	"github.com/abrezinsky/scoretally/internal/services"
)

func TestCanEdit_Tiers(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	judge, gown := e.fx.Judge1.ID, e.fx.Gown.ID
	poise, elegance := e.fx.GownCriteria[0].ID, e.fx.GownCriteria[1].ID

	check := func(name string, criterionID int, allowed bool, tier scoring.Tier) {
		t.Helper()
		d, err := e.permissions.CanEdit(ctx, judge, gown, criterionID)
		if err != nil {
			t.Fatalf("%s: CanEdit failed: %v", name, err)
		}
		if d.Allowed != allowed || d.Tier != tier {
			t.Errorf("%s: expected allowed=%v tier=%s, got %+v", name, allowed, tier, d)
		}
	}

	check("fresh", poise, true, scoring.TierSubmission)

	if _, err := e.permissions.SetScoringPermission(ctx, judge, gown, nil, false); err != nil {
		t.Fatalf("SetScoringPermission failed: %v", err)
	}
	check("contest default off", poise, false, scoring.TierContestDefault)

	if _, err := e.permissions.SetScoringPermission(ctx, judge, gown, &poise, true); err != nil {
		t.Fatalf("SetScoringPermission failed: %v", err)
	}
	check("specific on", poise, true, scoring.TierSpecific)
	check("other criterion", elegance, false, scoring.TierContestDefault)

	if err := e.permissions.ClearScoringPermission(ctx, judge, gown, nil); err != nil {
		t.Fatalf("ClearScoringPermission failed: %v", err)
	}
	check("default cleared", elegance, true, scoring.TierSubmission)

	// Clearing twice is fine
	if err := e.permissions.ClearScoringPermission(ctx, judge, gown, nil); err != nil {
		t.Errorf("second clear failed: %v", err)
	}
}

func TestSetScoringPermission_Validation(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		judgeID   int
		contestID int
		criterion *int
		want      error
	}{
		{"unknown judge", 9999, e.fx.Gown.ID, nil, services.ErrJudgeNotFound},
		{"unknown contest", e.fx.Judge1.ID, 9999, nil, services.ErrContestNotFound},
		{"criterion of another contest", e.fx.Judge1.ID, e.fx.Gown.ID, intPtr(e.fx.TalentCriteria[0].ID), services.ErrCriterionMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.permissions.SetScoringPermission(ctx, tt.judgeID, tt.contestID, tt.criterion, true)
			if !stderrors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAccessOverrides(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	judge, gown := e.fx.Judge1.ID, e.fx.Gown.ID
	junior, senior := e.fx.Divisions["Junior"], e.fx.Divisions["Senior"]
	first, second, third := e.fx.GownEntrants[0], e.fx.GownEntrants[1], e.fx.GownEntrants[2]

	ok, err := e.permissions.CanAccessDivision(ctx, judge, gown, senior)
	if err != nil || !ok {
		t.Fatalf("no overrides should allow every division: %v, %v", ok, err)
	}

	if err := e.permissions.SetDivisionAccess(ctx, judge, gown, []int{junior}); err != nil {
		t.Fatalf("SetDivisionAccess failed: %v", err)
	}
	if ok, _ := e.permissions.CanAccessDivision(ctx, judge, gown, senior); ok {
		t.Error("senior should be hidden")
	}
	if ok, _ := e.permissions.CanAccessParticipant(ctx, judge, gown, third.ID); ok {
		t.Error("senior participant should be hidden by division")
	}

	if err := e.permissions.SetParticipantAccess(ctx, judge, gown, []int{first.ID}); err != nil {
		t.Fatalf("SetParticipantAccess failed: %v", err)
	}
	if ok, _ := e.permissions.CanAccessParticipant(ctx, judge, gown, second.ID); ok {
		t.Error("participant 2 should be hidden by participant override")
	}
	if ok, _ := e.permissions.CanAccessParticipant(ctx, judge, gown, first.ID); !ok {
		t.Error("participant 1 should be visible")
	}
	// A participant of another contest is never accessible here
	if ok, _ := e.permissions.CanAccessParticipant(ctx, judge, gown, e.fx.TalentEntrants[0].ID); ok {
		t.Error("talent participant should not be accessible in gown")
	}

	perms, err := e.permissions.JudgePermissions(ctx, judge, gown)
	if err != nil {
		t.Fatalf("JudgePermissions failed: %v", err)
	}
	if len(perms.Divisions) != 1 || perms.Divisions[0] != junior {
		t.Errorf("unexpected divisions: %v", perms.Divisions)
	}
	if len(perms.Participants) != 1 || perms.Participants[0] != first.ID {
		t.Errorf("unexpected participants: %v", perms.Participants)
	}
	if len(perms.Decisions) != 2 || perms.Submitted {
		t.Errorf("unexpected decisions: %+v", perms)
	}

	// Empty lists lift the restriction
	if err := e.permissions.SetDivisionAccess(ctx, judge, gown, nil); err != nil {
		t.Fatalf("SetDivisionAccess clear failed: %v", err)
	}
	if err := e.permissions.SetParticipantAccess(ctx, judge, gown, []int{}); err != nil {
		t.Fatalf("SetParticipantAccess clear failed: %v", err)
	}
	if ok, _ := e.permissions.CanAccessParticipant(ctx, judge, gown, third.ID); !ok {
		t.Error("restrictions should be lifted")
	}
}

func TestAccessOverrides_RejectForeignIDs(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	err := e.permissions.SetDivisionAccess(ctx, e.fx.Judge1.ID, e.fx.Gown.ID, []int{9999})
	if errors.KindOf(err) != errors.ErrValidation {
		t.Errorf("division: expected validation error, got %v", err)
	}
	err = e.permissions.SetParticipantAccess(ctx, e.fx.Judge1.ID, e.fx.Gown.ID, []int{e.fx.TalentEntrants[0].ID})
	if errors.KindOf(err) != errors.ErrValidation {
		t.Errorf("participant: expected validation error, got %v", err)
	}
}

func TestPermissions_StoreError(t *testing.T) {
	e, m := setupMock(t)
	m.ReplaceDivisionPermissionsError = stderrors.New("locked")

	err := e.permissions.SetDivisionAccess(context.Background(), e.fx.Judge1.ID, e.fx.Gown.ID, []int{e.fx.Divisions["Junior"]})
	if errors.KindOf(err) != errors.ErrStore {
		t.Errorf("expected store error, got %v", err)
	}
}
