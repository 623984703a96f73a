package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/abrezinsky/scoretally/internal/logger"
	"github.com/abrezinsky/scoretally/internal/models"
)

// maxBundleSize bounds an event import body
const maxBundleSize = 8 << 20

// ==================== Events ====================

// handleImport loads an event bundle posted as YAML or JSON
func (h *Handlers) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBundleSize+1))
	if err != nil {
		h.respondError(w, r, BadRequest("Failed to read request body"))
		return
	}
	if len(data) == 0 {
		h.respondError(w, r, BadRequest("Request body is empty"))
		return
	}
	if len(data) > maxBundleSize {
		h.respondError(w, r, BadRequest("Event bundle is too large"))
		return
	}

	bundle, err := h.Events.DecodeBundle(data, r.Header.Get("Content-Type"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	event, err := h.Events.ImportEvent(r.Context(), bundle)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondCreated(w, event)
}

func (h *Handlers) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Events.ListEvents(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, events)
}

func (h *Handlers) handleActivateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "eventID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.Events.ActivateEvent(r.Context(), eventID); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondSuccess(w, "event activated")
}

// ==================== Awards ====================

func (h *Handlers) handleListAwards(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "eventID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	awards, err := h.Events.ListAwards(r.Context(), eventID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, awards)
}

func (h *Handlers) handleCreateAward(w http.ResponseWriter, r *http.Request) {
	var award models.Award
	if err := decodeJSON(r, &award); err != nil {
		h.respondError(w, r, err)
		return
	}
	award.ID = 0

	saved, err := h.Events.SaveAward(r.Context(), award)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondCreated(w, saved)
}

func (h *Handlers) handleUpdateAward(w http.ResponseWriter, r *http.Request) {
	awardID, err := parseIntParam(r, "awardID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	var award models.Award
	if err := decodeJSON(r, &award); err != nil {
		h.respondError(w, r, err)
		return
	}
	award.ID = awardID

	saved, err := h.Events.SaveAward(r.Context(), award)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, saved)
}

// ==================== QR Codes ====================

// handleJudgeQR renders a judge's login card
func (h *Handlers) handleJudgeQR(w http.ResponseWriter, r *http.Request) {
	judgeID, err := parseIntParam(r, "judgeID")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	png, err := h.Events.JudgeLoginQR(r.Context(), judgeID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

// ==================== Settings ====================

func (h *Handlers) handleGetBaseURL(w http.ResponseWriter, r *http.Request) {
	u, err := h.Events.GetBaseURL(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, BaseURLResponse{BaseURL: u})
}

func (h *Handlers) handleSetBaseURL(w http.ResponseWriter, r *http.Request) {
	var req BaseURLRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.Events.SetBaseURL(r.Context(), req.BaseURL); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.handleGetBaseURL(w, r)
}

func (h *Handlers) loggingState() LoggingResponse {
	return LoggingResponse{
		Level: strings.ToLower(h.log.GetLevel().String()),
		HTTP:  h.log.IsHTTPLoggingEnabled(),
	}
}

func (h *Handlers) handleGetLogging(w http.ResponseWriter, r *http.Request) {
	respondOK(w, h.loggingState())
}

// handleSetLogging changes the log level and HTTP request logging
func (h *Handlers) handleSetLogging(w http.ResponseWriter, r *http.Request) {
	var req LoggingRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	if req.Level != "" {
		switch strings.ToLower(req.Level) {
		case "debug", "info", "warn", "error":
			h.log.SetLevel(logger.ParseLevel(req.Level))
		default:
			h.respondError(w, r, BadRequest("level must be debug, info, warn or error"))
			return
		}
	}
	if req.HTTP != nil {
		if *req.HTTP {
			h.log.EnableHTTPLogging()
		} else {
			h.log.DisableHTTPLogging()
		}
	}
	h.log.Info("logging changed", "level", h.log.GetLevel().String(), "http", h.log.IsHTTPLoggingEnabled())
	respondOK(w, h.loggingState())
}
