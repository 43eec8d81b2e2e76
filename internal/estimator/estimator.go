// Package estimator projects a realistic return, a confidence percentage and
// a days-to-target figure for a scored candidate.
//
// The target price is the lesser of the nearest resistance above the close
// and an ATR projection, scaled by a momentum adjustment. Confidence is an
// affine blend of the composite score with volume and trend agreement
// bonuses, so it never decreases as the composite rises.
package estimator

import (
	"fmt"
	"math"

	"swing-screenerv1/internal/model"
)

// Mode selects the return clipping band.
type Mode string

const (
	ModeSwing    Mode = "swing"    // multi-day holds, returns clipped 1-20%
	ModeIntraday Mode = "intraday" // same-day holds, returns clipped 1-5%
)

// Band returns the return clipping band for the mode.
func (m Mode) Band() (lo, hi float64) {
	if m == ModeIntraday {
		return 1, 5
	}
	return 1, 20
}

// Params tunes the projection. Zero values are invalid; use DefaultParams.
type Params struct {
	Mode Mode

	// ATRMultiple is k in the projection close × (1 + k·atr_pct/100).
	ATRMultiple float64 `yaml:"atr_multiple"`

	// MaxHoldDays caps days-to-target and is the fallback when volatility
	// is unreadable.
	MaxHoldDays int `yaml:"max_hold_days"`
}

// DefaultParams projects four ATRs out over a swing hold of up to ten days.
var DefaultParams = Params{
	Mode:        ModeSwing,
	ATRMultiple: 4.0,
	MaxHoldDays: 10,
}

func (p Params) Validate() error {
	if p.Mode != ModeSwing && p.Mode != ModeIntraday {
		return fmt.Errorf("estimator: unknown mode %q", p.Mode)
	}
	if p.ATRMultiple <= 0 {
		return fmt.Errorf("estimator: atr multiple %v, want > 0", p.ATRMultiple)
	}
	if p.MaxHoldDays < 1 {
		return fmt.Errorf("estimator: max hold days %d, want ≥ 1", p.MaxHoldDays)
	}
	return nil
}

// Estimate projects the trade outcome for a scored candidate.
func Estimate(s *model.IndicatorSnapshot, scores model.ScoreBreakdown, p Params) model.TradeEstimate {
	ret := returnPct(s, scores, p)
	return model.TradeEstimate{
		ReturnPct:     ret,
		ConfidencePct: Confidence(s, scores.Composite),
		DaysToTarget:  DaysToTarget(s.ATRPct, p.MaxHoldDays),
	}
}

// returnPct derives the clipped return to the projected target.
func returnPct(s *model.IndicatorSnapshot, scores model.ScoreBreakdown, p Params) float64 {
	close := s.Close
	if close <= 0 {
		return 0
	}

	target := 0.0
	if s.ATRPct.OK {
		target = close * (1 + p.ATRMultiple*s.ATRPct.V/100)
	}
	if r, ok := nextResistance(s); ok && r > close {
		if target == 0 || r < target {
			target = r
		}
	}
	if target <= close {
		return 0
	}

	raw := (target - close) / close * 100
	raw *= momentumAdjust(scores.Momentum)

	lo, hi := p.Mode.Band()
	return math.Min(math.Max(raw, lo), hi)
}

// nextResistance picks the nearest level above the close, falling back to
// the rolling window high.
func nextResistance(s *model.IndicatorSnapshot) (float64, bool) {
	if len(s.ResistanceLevels) > 0 {
		return s.ResistanceLevels[0], true
	}
	if s.Resistance.OK {
		return s.Resistance.V, true
	}
	return 0, false
}

// momentumAdjust maps the momentum sub-score [0,100] onto [0.8,1.2].
func momentumAdjust(momentumScore float64) float64 {
	return 0.8 + momentumScore/100*0.4
}

// Confidence blends the composite score with volume and trend agreement:
// 0.55 × composite, plus up to 25 points of volume confirmation and up to
// 20 of trend alignment, clipped to [0,100]. Strictly non-decreasing in the
// composite with the snapshot held fixed.
func Confidence(s *model.IndicatorSnapshot, composite float64) float64 {
	conf := 0.55 * composite

	if s.VolumeSurge.OK {
		switch {
		case s.VolumeSurge.V > 1.5:
			conf += 20
		case s.VolumeSurge.V > 1.0:
			conf += 10
		}
	}
	if s.VolRising {
		conf += 5
	}

	if s.TrendOK() {
		conf += 10
	}
	if s.SMA20.OK && s.Close > s.SMA20.V {
		conf += 10
	}

	return math.Min(math.Max(conf, 0), 100)
}

// DaysToTarget scales inversely with volatility: a more volatile name is
// expected to cover the distance faster. Unreadable volatility pushes the
// estimate out to the hold limit.
func DaysToTarget(atrPct model.Value, maxHoldDays int) int {
	if !atrPct.OK || atrPct.V <= 0 {
		return maxHoldDays
	}
	days := int(math.Round(24 / atrPct.V))
	if days < 1 {
		days = 1
	}
	if days > maxHoldDays {
		days = maxHoldDays
	}
	return days
}
