package handlers

import (
	"net/http"

	"github.com/abrezinsky/scoretally/internal/scoring"
	"github.com/abrezinsky/scoretally/internal/services"
)

// scopeFromQuery is all judges unless ?judge_id= narrows it to one
func scopeFromQuery(r *http.Request) (scoring.Scope, error) {
	judgeID, err := parseIntQuery(r, "judge_id")
	if err != nil {
		return scoring.Scope{}, err
	}
	if judgeID != nil {
		return scoring.SingleJudge(*judgeID), nil
	}
	return scoring.AllJudges(), nil
}

func sourceFromQuery(r *http.Request) (scoring.Source, error) {
	switch v := scoring.Source(r.URL.Query().Get("source")); v {
	case "", scoring.SourceTotals:
		return scoring.SourceTotals, nil
	case scoring.SourceLive:
		return scoring.SourceLive, nil
	default:
		return "", BadRequest("source must be totals or live")
	}
}

// eventFor returns the event a tabulation request is about: a tabulator's
// own event, or for admins ?event_id= falling back to the active event
func (h *Handlers) eventFor(r *http.Request) (int, error) {
	p := principalFrom(r)
	if p.Role == services.RoleTabulator {
		return p.EventID, nil
	}
	eventID, err := parseIntQuery(r, "event_id")
	if err != nil {
		return 0, err
	}
	if eventID != nil {
		return *eventID, nil
	}
	e, err := h.Events.ActiveEvent(r.Context())
	if err != nil {
		return 0, err
	}
	return e.ID, nil
}

// inEvent hides resources of other events from tabulators. Admins see
// every event.
func inEvent(r *http.Request, eventID int, notFound error) error {
	if p := principalFrom(r); p.Role == services.RoleTabulator && p.EventID != eventID {
		return notFound
	}
	return nil
}

func (h *Handlers) checkContest(r *http.Request, contestID int) error {
	if principalFrom(r).Role != services.RoleTabulator {
		return nil
	}
	eventID, err := h.Tabulation.ContestEventID(r.Context(), contestID)
	if err != nil {
		return err
	}
	return inEvent(r, eventID, services.ErrContestNotFound)
}

func (h *Handlers) checkAward(r *http.Request, awardID int) error {
	if principalFrom(r).Role != services.RoleTabulator {
		return nil
	}
	eventID, err := h.Tabulation.AwardEventID(r.Context(), awardID)
	if err != nil {
		return err
	}
	return inEvent(r, eventID, services.ErrAwardNotFound)
}

// handleContestRanking returns the ranked standings of a contest
func (h *Handlers) handleContestRanking(w http.ResponseWriter, r *http.Request) {
	contestID, err := parseIntParam(r, "contestID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	scope, err := scopeFromQuery(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	source, err := sourceFromQuery(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.checkContest(r, contestID); err != nil {
		h.respondError(w, r, err)
		return
	}

	tab, err := h.Tabulation.ContestRanking(r.Context(), contestID, scope, source)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, tab)
}

// handleProgress returns each judge's scoring progress on a contest
func (h *Handlers) handleProgress(w http.ResponseWriter, r *http.Request) {
	contestID, err := parseIntParam(r, "contestID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.checkContest(r, contestID); err != nil {
		h.respondError(w, r, err)
		return
	}

	progress, err := h.Tabulation.Progress(r.Context(), contestID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, progress)
}

// handleAwardRankings ranks every active award of the event
func (h *Handlers) handleAwardRankings(w http.ResponseWriter, r *http.Request) {
	eventID, err := h.eventFor(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	scope, err := scopeFromQuery(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	results, err := h.Tabulation.AwardRankings(r.Context(), eventID, scope)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, AwardRankingsResponse{EventID: eventID, Awards: results})
}

// handleAwardRanking ranks one award
func (h *Handlers) handleAwardRanking(w http.ResponseWriter, r *http.Request) {
	awardID, err := parseIntParam(r, "awardID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	scope, err := scopeFromQuery(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.checkAward(r, awardID); err != nil {
		h.respondError(w, r, err)
		return
	}

	res, err := h.Tabulation.AwardRanking(r.Context(), awardID, scope)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, res)
}
