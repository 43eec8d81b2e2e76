// Package scoring computes the five technical sub-scores for a screening
// candidate and blends them into a weighted composite.
//
// Every sub-score is a pure function of the candidate's IndicatorSnapshot
// and lands in [0,100]. A snapshot field that is NotComputable contributes
// zero to its sub-score — starved history degrades the score, it never
// errors.
package scoring

import (
	"fmt"
	"math"

	"swing-screenerv1/internal/model"
)

// Weights blends the five sub-scores into the composite. Must sum to 1.
type Weights struct {
	MACD     float64 `yaml:"macd"`
	RSI      float64 `yaml:"rsi"`
	Volume   float64 `yaml:"volume"`
	Breakout float64 `yaml:"breakout"`
	Momentum float64 `yaml:"momentum"`
}

// DefaultWeights favors MACD slightly over the other signals.
var DefaultWeights = Weights{
	MACD:     0.25,
	RSI:      0.20,
	Volume:   0.20,
	Breakout: 0.20,
	Momentum: 0.15,
}

const weightSumTolerance = 1e-6

// Validate rejects weights that are negative or do not sum to 1.
func (w Weights) Validate() error {
	for _, v := range []float64{w.MACD, w.RSI, w.Volume, w.Breakout, w.Momentum} {
		if v < 0 {
			return fmt.Errorf("scoring: negative weight %v", v)
		}
	}
	sum := w.MACD + w.RSI + w.Volume + w.Breakout + w.Momentum
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("scoring: weights sum to %v, want 1", sum)
	}
	return nil
}

// Score computes the full breakdown for a snapshot under the given weights.
func Score(s *model.IndicatorSnapshot, w Weights) model.ScoreBreakdown {
	b := model.ScoreBreakdown{
		MACD:     MACDScore(s),
		RSI:      RSIScore(s),
		Volume:   VolumeScore(s),
		Breakout: BreakoutScore(s),
		Momentum: MomentumScore(s),
	}
	b.Composite = b.MACD*w.MACD +
		b.RSI*w.RSI +
		b.Volume*w.Volume +
		b.Breakout*w.Breakout +
		b.Momentum*w.Momentum
	return b
}

// MACDScore rewards a fresh bullish crossover (+40), line above signal (+20),
// an expanding histogram (+20), and line strength relative to its recent
// range (up to +20).
func MACDScore(s *model.IndicatorSnapshot) float64 {
	if !s.MACDHist.OK {
		return 0
	}
	score := 0.0

	if s.MACDCrossAge >= 0 {
		score += 40
	}
	if s.MACDHist.V > 0 {
		score += 20
	}
	if s.MACDHistPrev.OK && s.MACDHist.V > s.MACDHistPrev.V {
		score += 20
	}
	if s.MACDLine.OK && s.MACDLine.V > 0 && s.MACDRange.OK && s.MACDRange.V > 0 {
		score += math.Min(s.MACDLine.V/s.MACDRange.V*20, 20)
	}

	return clamp100(score)
}

// RSIScore rewards the momentum zone 45-65 (+50, half credit for the
// adjacent bands), a rising RSI (+25), and not being overbought (+25,
// +10 when only slightly over).
func RSIScore(s *model.IndicatorSnapshot) float64 {
	if !s.RSI14.OK {
		return 0
	}
	rsi := s.RSI14.V
	score := 0.0

	switch {
	case rsi >= 45 && rsi <= 65:
		score += 50
	case (rsi >= 35 && rsi < 45) || (rsi > 65 && rsi <= 70):
		score += 25
	}

	if s.RSIPrev.OK && rsi > s.RSIPrev.V {
		score += 25
	}

	switch {
	case rsi < 70:
		score += 25
	case rsi < 80:
		score += 10
	}

	return clamp100(score)
}

// VolumeScore rewards a surge over the 20-bar average (tiered at 2x, 1.5x
// and 1x), a rising short-term volume trend, and consistency of
// above-average volume across the last five bars.
func VolumeScore(s *model.IndicatorSnapshot) float64 {
	if !s.VolumeSurge.OK {
		return 0
	}
	score := 0.0

	switch ratio := s.VolumeSurge.V; {
	case ratio > 2.0:
		score += 50
	case ratio > 1.5:
		score += 35
	case ratio > 1.0:
		score += 20
	}

	switch {
	case s.VolRising:
		score += 30
	case s.VolRisingSlow:
		score += 15
	}

	switch {
	case s.VolAboveAvg5 >= 4:
		score += 20
	case s.VolAboveAvg5 >= 3:
		score += 10
	}

	return clamp100(score)
}

// BreakoutScore rewards proximity to the 20-bar high (+40 within 1%, +20
// within 3%), closes above the 20- and 50-bar means (+15 each), and a
// support level sitting a healthy distance below (+30 at 5-10%, tapering
// outside that band).
func BreakoutScore(s *model.IndicatorSnapshot) float64 {
	score := 0.0
	price := s.Close

	if s.High20.OK {
		switch {
		case price >= s.High20.V*0.99:
			score += 40
		case price >= s.High20.V*0.97:
			score += 20
		}
	}

	if s.SMA20.OK && price > s.SMA20.V {
		score += 15
	}
	if s.SMA50.OK && price > s.SMA50.V {
		score += 15
	}

	if len(s.SupportLevels) > 0 && price > 0 {
		dist := (price - s.SupportLevels[0]) / price * 100
		switch {
		case dist >= 5 && dist <= 10:
			score += 30
		case dist >= 3 && dist <= 15:
			score += 20
		case dist > 2:
			score += 10
		}
	}

	return clamp100(score)
}

// MomentumScore rewards a 5-bar return in the 5-15% sweet spot (tiered
// outside it), acceleration of the 3-bar return relative to the 5-bar
// (+25 strong, +10 merely positive), and a higher-highs pattern (+25,
// +10 for the weak form).
func MomentumScore(s *model.IndicatorSnapshot) float64 {
	score := 0.0

	if s.Mom5.OK {
		switch m := s.Mom5.V; {
		case m >= 5 && m <= 15:
			score += 50
		case (m >= 3 && m < 5) || (m > 15 && m <= 20):
			score += 35
		case m >= 1 && m < 3:
			score += 20
		}
	}

	if s.Mom3.OK && s.Mom5.OK {
		switch {
		case s.Mom3.V > s.Mom5.V*0.6:
			score += 25
		case s.Mom3.V > 0:
			score += 10
		}
	}

	switch {
	case s.HigherHighs:
		score += 25
	case s.High5Up:
		score += 10
	}

	return clamp100(score)
}

func clamp100(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
