package handlers

import (
	"net/http"
)

// handleJudgeContests lists the contests of the judge's event
func (h *Handlers) handleJudgeContests(w http.ResponseWriter, r *http.Request) {
	contests, err := h.Scoring.Contests(r.Context(), principalFrom(r).Judge())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, contests)
}

// handleScoresheet returns the judge's scoresheet for a contest
func (h *Handlers) handleScoresheet(w http.ResponseWriter, r *http.Request) {
	contestID, err := parseIntParam(r, "contestID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	sheet, err := h.Scoring.Scoresheet(r.Context(), principalFrom(r).Judge(), contestID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, sheet)
}

// handleSaveScore saves or clears one cell. A locked cell answers 200 with
// status "locked".
func (h *Handlers) handleSaveScore(w http.ResponseWriter, r *http.Request) {
	var req SaveScoreRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.ParticipantID == 0 || req.CriterionID == 0 {
		h.respondError(w, r, BadRequest("participant_id and criterion_id are required"))
		return
	}

	res, err := h.Scoring.SaveScore(r.Context(), principalFrom(r).Judge(), req.ParticipantID, req.CriterionID, req.Value.Value)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, res)
}

// handlePreview returns totals with pending edits applied
func (h *Handlers) handlePreview(w http.ResponseWriter, r *http.Request) {
	contestID, err := parseIntParam(r, "contestID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req PreviewRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	lines, err := h.Scoring.Preview(r.Context(), principalFrom(r).Judge(), contestID, toPending(req.Pending))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, lines)
}

// handleSubmit finalizes the judge's scores for a contest. An empty body
// submits every accessible participant with no pending edits.
func (h *Handlers) handleSubmit(w http.ResponseWriter, r *http.Request) {
	contestID, err := parseIntParam(r, "contestID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var req SubmitRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			h.respondError(w, r, err)
			return
		}
	}

	res, err := h.Submission.SubmitAll(r.Context(), principalFrom(r).Judge(), contestID, req.DivisionID, toPending(req.Pending))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, res)
}
