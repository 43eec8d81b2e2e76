package model

import "time"

// StageFailure records one symbol excluded by a stage and why.
type StageFailure struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// StageResult is the funnel report entry for a single pipeline stage.
// Immutable once emitted; the ordered sequence of StageResults for a run
// forms the funnel report.
type StageResult struct {
	StageIndex  int            `json:"stage_index"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputCount  int            `json:"input_count"`
	PassedCount int            `json:"passed_count"`
	FailedCount int            `json:"failed_count"`
	PassRate    float64        `json:"pass_rate"` // 0–1, 0 for an empty input batch
	Elapsed     time.Duration  `json:"elapsed"`
	Failures    []StageFailure `json:"failures,omitempty"`
}

// ScanReport is everything a scan run produces for persistence and display.
type ScanReport struct {
	Universe      string        `json:"universe"`
	StartedAt     time.Time     `json:"started_at"`
	Elapsed       time.Duration `json:"elapsed"`
	Funnel        []StageResult `json:"funnel"`
	Opportunities []Opportunity `json:"opportunities"`
}
