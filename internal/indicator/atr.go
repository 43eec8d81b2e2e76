package indicator

import (
	"math"

	"swing-screenerv1/internal/model"
)

// ATR calculates Average True Range: a rolling mean of the true range,
// where TR = max(high-low, |high-prevClose|, |low-prevClose|).
type ATR struct {
	period    int
	count     int
	prevClose float64
	window    *SMA
}

// NewATR creates a new ATR indicator with the given period (typically 14).
func NewATR(period int) *ATR {
	return &ATR{period: period, window: NewSMA(period)}
}

func (a *ATR) Name() string { return "ATR" }

func (a *ATR) Update(bar model.PriceBar) {
	a.count++

	tr := bar.High - bar.Low
	if a.count > 1 {
		// True range extends the bar range across the previous close
		tr = math.Max(tr, math.Abs(bar.High-a.prevClose))
		tr = math.Max(tr, math.Abs(bar.Low-a.prevClose))
	}
	a.prevClose = bar.Close
	a.window.push(tr)
}

func (a *ATR) Value() float64 { return a.window.Value() }

// Ready requires a full TR window plus the bar that seeds prevClose.
func (a *ATR) Ready() bool { return a.count > a.period }
