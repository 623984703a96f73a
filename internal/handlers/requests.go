package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/abrezinsky/scoretally/internal/services"
)

// RawScore is a score value as clients send it: a JSON number, a string,
// or null / empty to clear the cell
type RawScore struct {
	Value *string
}

// UnmarshalJSON accepts numbers, strings and null
func (v *RawScore) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		v.Value = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v.Value = &s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("score value must be a number, string or null")
	}
	s := n.String()
	v.Value = &s
	return nil
}

// LoginRequest represents a request to start a session
type LoginRequest struct {
	Role     services.Role `json:"role"`
	Username string        `json:"username"`
	Password string        `json:"password"`
}

// SaveScoreRequest represents a request to save or clear one score
type SaveScoreRequest struct {
	ParticipantID int      `json:"participant_id"`
	CriterionID   int      `json:"criterion_id"`
	Value         RawScore `json:"value"`
}

// PendingScoreRequest is one unsaved edit sent with preview or submit
type PendingScoreRequest struct {
	ParticipantID int      `json:"participant_id"`
	CriterionID   int      `json:"criterion_id"`
	Value         RawScore `json:"value"`
}

// PreviewRequest represents a request to preview totals with pending edits
type PreviewRequest struct {
	Pending []PendingScoreRequest `json:"pending"`
}

// SubmitRequest represents a request to submit all scores of a contest
type SubmitRequest struct {
	DivisionID *int                  `json:"division_id"`
	Pending    []PendingScoreRequest `json:"pending"`
}

func toPending(in []PendingScoreRequest) []services.PendingScore {
	out := make([]services.PendingScore, 0, len(in))
	for _, p := range in {
		out = append(out, services.PendingScore{
			ParticipantID: p.ParticipantID,
			CriterionID:   p.CriterionID,
			Value:         p.Value.Value,
		})
	}
	return out
}

// ScoringPermissionRequest sets or clears one scoring override. A nil
// criterion is the contest-wide default.
type ScoringPermissionRequest struct {
	JudgeID     int  `json:"judge_id"`
	ContestID   int  `json:"contest_id"`
	CriterionID *int `json:"criterion_id"`
	CanEdit     bool `json:"can_edit"`
}

// AccessRequest replaces a judge's division or participant overrides
type AccessRequest struct {
	JudgeID   int   `json:"judge_id"`
	ContestID int   `json:"contest_id"`
	IDs       []int `json:"ids"`
}

// BaseURLRequest represents a request to change the public base URL
type BaseURLRequest struct {
	BaseURL string `json:"base_url"`
}

// LoggingRequest changes log level and HTTP request logging at runtime
type LoggingRequest struct {
	Level string `json:"level,omitempty"`
	HTTP  *bool  `json:"http,omitempty"`
}
