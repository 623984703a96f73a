package handlers

import (
	"net/http"

	"github.com/abrezinsky/scoretally/internal/services"
)

// checkOverrideWrite limits a tabulator's override writes to contests of
// their own event while it is active
func (h *Handlers) checkOverrideWrite(r *http.Request, contestID int) error {
	if err := h.checkContest(r, contestID); err != nil {
		return err
	}
	if p := principalFrom(r); p.Role == services.RoleTabulator {
		return h.Session.RequireActiveEvent(r.Context(), p.EventID)
	}
	return nil
}

// handleJudgePermissions returns every override and decision of a judge
// on a contest
func (h *Handlers) handleJudgePermissions(w http.ResponseWriter, r *http.Request) {
	judgeID, err := parseIntParam(r, "judgeID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	contestID, err := parseIntParam(r, "contestID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.checkContest(r, contestID); err != nil {
		h.respondError(w, r, err)
		return
	}

	perms, err := h.Permissions.JudgePermissions(r.Context(), judgeID, contestID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, perms)
}

// handleSetScoringPermission upserts one scoring override
func (h *Handlers) handleSetScoringPermission(w http.ResponseWriter, r *http.Request) {
	var req ScoringPermissionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.checkOverrideWrite(r, req.ContestID); err != nil {
		h.respondError(w, r, err)
		return
	}

	perm, err := h.Permissions.SetScoringPermission(r.Context(), req.JudgeID, req.ContestID, req.CriterionID, req.CanEdit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, perm)
}

// handleClearScoringPermission removes one scoring override
func (h *Handlers) handleClearScoringPermission(w http.ResponseWriter, r *http.Request) {
	var req ScoringPermissionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.checkOverrideWrite(r, req.ContestID); err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.Permissions.ClearScoringPermission(r.Context(), req.JudgeID, req.ContestID, req.CriterionID); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondDeleted(w)
}

// handleSetDivisionAccess replaces a judge's division overrides
func (h *Handlers) handleSetDivisionAccess(w http.ResponseWriter, r *http.Request) {
	var req AccessRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.checkOverrideWrite(r, req.ContestID); err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.Permissions.SetDivisionAccess(r.Context(), req.JudgeID, req.ContestID, req.IDs); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondSuccess(w, "division access updated")
}

// handleSetParticipantAccess replaces a judge's participant overrides
func (h *Handlers) handleSetParticipantAccess(w http.ResponseWriter, r *http.Request) {
	var req AccessRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.checkOverrideWrite(r, req.ContestID); err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.Permissions.SetParticipantAccess(r.Context(), req.JudgeID, req.ContestID, req.IDs); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondSuccess(w, "participant access updated")
}
