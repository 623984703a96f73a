package handlers

import "github.com/abrezinsky/scoretally/internal/scoring"

// HealthResponse is the response of the health check
type HealthResponse struct {
	Status string `json:"status"`
}

// AwardRankingsResponse lists the rankings of every active award
type AwardRankingsResponse struct {
	EventID int                   `json:"event_id"`
	Awards  []scoring.AwardResult `json:"awards"`
}

// BaseURLResponse is the response for base URL reads and writes
type BaseURLResponse struct {
	BaseURL string `json:"base_url"`
}

// LoggingResponse reports the current logging settings
type LoggingResponse struct {
	Level string `json:"level"`
	HTTP  bool   `json:"http"`
}
