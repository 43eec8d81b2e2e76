package model

import "time"

// OpenPosition is an entered swing trade being watched for exit conditions.
// The monitor reads it and returns a decision; it never mutates the position.
type OpenPosition struct {
	Symbol      string    `json:"symbol"`
	EntryPrice  float64   `json:"entry_price"`
	TargetPrice float64   `json:"target_price"`
	StopPrice   float64   `json:"stop_price"`
	Shares      int       `json:"shares"`
	EnteredOn   time.Time `json:"entered_on"` // session date of entry
	MaxHoldDays int       `json:"max_hold_days"`
}

// PositionStatus is the outcome of a monitor check.
type PositionStatus string

const (
	StatusHold        PositionStatus = "HOLD"
	StatusTargetHit   PositionStatus = "TARGET_HIT"
	StatusStopHit     PositionStatus = "STOP_HIT"
	StatusTimeExpired PositionStatus = "TIME_EXPIRED"
)

// Exit reports whether the status calls for closing the position.
func (s PositionStatus) Exit() bool { return s != StatusHold }

// PositionDecision is one HOLD/EXIT verdict for an open position.
type PositionDecision struct {
	Symbol        string         `json:"symbol"`
	Status        PositionStatus `json:"status"`
	CurrentPrice  float64        `json:"current_price"`
	CurrentPnLPct float64        `json:"current_pnl_pct"`
	DaysHeld      int            `json:"days_held"`
	CheckedAt     time.Time      `json:"checked_at"`
}
