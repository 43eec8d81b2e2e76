// Package indicator provides technical indicator calculations over daily
// price bars.
//
// All indicators implement the Indicator interface, receiving bars and
// producing float64 values. Each Update is O(1) — no history scans. A full
// IndicatorSnapshot over a bar window is built by Compute.
package indicator

import "swing-screenerv1/internal/model"

// Indicator is the interface for all streaming technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA", "RSI").
	Name() string

	// Update feeds a new bar and recalculates.
	Update(bar model.PriceBar)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough bars have been accumulated.
	Ready() bool
}

// reading converts an indicator's current state into a model.Value,
// NotComputable until the lookback is satisfied.
func reading(ind Indicator) model.Value {
	if !ind.Ready() {
		return model.NotComputable
	}
	return model.Computed(ind.Value())
}
