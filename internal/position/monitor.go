// Package position evaluates open swing positions against current price for
// exit conditions. Check is a pure function: it never mutates the position,
// and identical inputs always produce the identical decision — the caller
// owns closing and persistence.
package position

import (
	"time"

	"swing-screenerv1/internal/model"
)

// Check decides the position state at the given price and date. Exit checks
// run in priority order: target, then stop, then hold-time expiry.
func Check(pos model.OpenPosition, currentPrice float64, today time.Time) model.PositionDecision {
	daysHeld := DaysHeld(pos.EnteredOn, today)

	status := model.StatusHold
	switch {
	case currentPrice >= pos.TargetPrice:
		status = model.StatusTargetHit
	case currentPrice <= pos.StopPrice:
		status = model.StatusStopHit
	case daysHeld >= pos.MaxHoldDays:
		status = model.StatusTimeExpired
	}

	return model.PositionDecision{
		Symbol:        pos.Symbol,
		Status:        status,
		CurrentPrice:  currentPrice,
		CurrentPnLPct: PnLPct(pos.EntryPrice, currentPrice),
		DaysHeld:      daysHeld,
		CheckedAt:     today,
	}
}

// DaysHeld counts calendar days from entry to today, never negative.
func DaysHeld(enteredOn, today time.Time) int {
	days := int(today.Sub(enteredOn).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// PnLPct is the unrealized move from entry, in percent.
func PnLPct(entryPrice, currentPrice float64) float64 {
	if entryPrice == 0 {
		return 0
	}
	return (currentPrice - entryPrice) / entryPrice * 100
}
