// Package swap decides whether a held dividend position should be
// liquidated to fund a swing-trade candidate.
//
// Two independent pure functions: ClassifyZone buckets the current price
// against the holder's average cost, and Evaluate runs the cost/benefit of
// swapping capital into the swing trade — swing profit less prorated lost
// dividend less short-term capital-gains tax.
package swap

import (
	"fmt"

	"swing-screenerv1/internal/model"
)

// Params tunes the advisor. All values are configuration, including the tax
// rate and dividend proration, which calibrate the cost side of the swap.
type Params struct {
	// Buy-zone band edges, percent deviation from average cost. STRONG_BUY
	// at or below -BandLow; WAIT above +BandHigh.
	BandLow  float64 `yaml:"band_low"`
	BandHigh float64 `yaml:"band_high"`

	// Gate: the swing candidate must clear both to be considered at all.
	MinSwingReturnPct     float64 `yaml:"min_swing_return_pct"`
	MinSwingConfidencePct float64 `yaml:"min_swing_confidence_pct"`

	// The swap only fires when the net edge clears this floor.
	MinNetAdvantageUSD float64 `yaml:"min_net_advantage_usd"`

	ShortTermTaxRate      float64 `yaml:"short_term_tax_rate"`
	DividendProrationDays float64 `yaml:"dividend_proration_days"`
}

// DefaultParams mirror a 15%/80% double gate with a $100 net-advantage
// floor, 30% short-term tax and a 7-day dividend proration.
var DefaultParams = Params{
	BandLow:               5,
	BandHigh:              7,
	MinSwingReturnPct:     15,
	MinSwingConfidencePct: 80,
	MinNetAdvantageUSD:    100,
	ShortTermTaxRate:      0.30,
	DividendProrationDays: 7,
}

func (p Params) Validate() error {
	if p.BandLow < 0 || p.BandHigh < 0 {
		return fmt.Errorf("swap: negative buy-zone band (%v, %v)", p.BandLow, p.BandHigh)
	}
	if p.ShortTermTaxRate < 0 || p.ShortTermTaxRate > 1 {
		return fmt.Errorf("swap: tax rate %v outside [0,1]", p.ShortTermTaxRate)
	}
	if p.DividendProrationDays < 0 {
		return fmt.Errorf("swap: negative proration days %v", p.DividendProrationDays)
	}
	return nil
}

// ClassifyZone buckets the deviation from average cost into one of the four
// contiguous buy zones.
func ClassifyZone(deviationPct float64, p Params) model.BuyZone {
	switch {
	case deviationPct <= -p.BandLow:
		return model.ZoneStrongBuy
	case deviationPct <= 0:
		return model.ZoneGoodBuy
	case deviationPct <= p.BandHigh:
		return model.ZoneHold
	default:
		return model.ZoneWait
	}
}

// DeviationPct is the current price's percent distance from average cost.
func DeviationPct(currentPrice, avgCost float64) float64 {
	if avgCost == 0 {
		return 0
	}
	return (currentPrice - avgCost) / avgCost * 100
}

// Evaluate renders the full swap verdict. When the swing candidate misses
// either gate the decision short-circuits with a nil breakdown — no
// cost/benefit math is run for a trade that was never eligible.
func Evaluate(in model.SwapInputs, p Params) model.SwapDecision {
	dev := DeviationPct(in.CurrentPrice, in.AvgCost)
	d := model.SwapDecision{
		BuyZone:      ClassifyZone(dev, p),
		DeviationPct: dev,
	}

	if in.SwingReturnPct < p.MinSwingReturnPct || in.SwingConfidencePct < p.MinSwingConfidencePct {
		d.Reason = fmt.Sprintf("swing candidate below %.0f%%/%.0f%% gate (%.1f%%/%.1f%%)",
			p.MinSwingReturnPct, p.MinSwingConfidencePct, in.SwingReturnPct, in.SwingConfidencePct)
		return d
	}

	positionValue := in.Shares * in.CurrentPrice
	costBasis := in.Shares * in.AvgCost
	unrealizedGain := positionValue - costBasis

	b := &model.SwapBreakdown{
		SwingProfit:  positionValue * in.SwingReturnPct / 100,
		LostDividend: in.MonthlyDividend / 30 * p.DividendProrationDays,
		TaxCost:      unrealizedGain * p.ShortTermTaxRate,
	}
	d.Breakdown = b
	d.NetAdvantageUSD = b.SwingProfit - b.LostDividend - b.TaxCost
	d.ShouldSell = d.NetAdvantageUSD > p.MinNetAdvantageUSD

	if d.ShouldSell {
		d.Reason = fmt.Sprintf("swing trade offers $%.0f net advantage after taxes and lost dividend", d.NetAdvantageUSD)
	} else {
		d.Reason = fmt.Sprintf("net advantage too small ($%.0f)", d.NetAdvantageUSD)
	}
	return d
}
