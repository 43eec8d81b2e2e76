package notification

import (
	"fmt"
	"strings"

	"swing-screenerv1/internal/model"
)

// OpportunityAlert formats a scan's top-tier picks into a single alert.
// Returns ok=false when there is nothing worth alerting on.
func OpportunityAlert(universe string, opps []model.Opportunity) (Alert, bool) {
	var top []model.Opportunity
	for _, o := range opps {
		if o.Tier == model.Tier1Aggressive {
			top = append(top, o)
		}
	}
	if len(top) == 0 {
		return Alert{}, false
	}

	var b strings.Builder
	for _, o := range top {
		fmt.Fprintf(&b, "%s  $%.2f → $%.2f (%.1f%%, conf %.0f%%, ~%dd)\n",
			o.Symbol, o.EntryPrice, o.TargetPrice,
			o.Estimate.ReturnPct, o.Estimate.ConfidencePct, o.Estimate.DaysToTarget)
		fmt.Fprintf(&b, "  %d sh, stop $%.2f, R:R %.2f\n", o.Shares, o.StopPrice, o.RiskReward)
	}

	return Alert{
		Level:   AlertInfo,
		Title:   fmt.Sprintf("%d aggressive pick(s) in %s", len(top), universe),
		Message: strings.TrimRight(b.String(), "\n"),
	}, true
}

// ExitAlert formats a position exit signal. HOLD decisions produce no alert.
func ExitAlert(pos model.OpenPosition, d model.PositionDecision) (Alert, bool) {
	if !d.Status.Exit() {
		return Alert{}, false
	}

	level := AlertWarning
	if d.Status == model.StatusStopHit {
		level = AlertCritical
	}

	msg := fmt.Sprintf("%s at $%.2f (entry $%.2f, %+.1f%%, held %dd of %d)",
		d.Status, d.CurrentPrice, pos.EntryPrice, d.CurrentPnLPct, d.DaysHeld, pos.MaxHoldDays)

	return Alert{
		Level:   level,
		Title:   fmt.Sprintf("Exit %s: %s", pos.Symbol, d.Status),
		Message: msg,
	}, true
}

// SwapAlert formats a dividend-swap sell recommendation. Hold decisions
// produce no alert.
func SwapAlert(holdingSymbol, swingSymbol string, d model.SwapDecision) (Alert, bool) {
	if !d.ShouldSell || d.Breakdown == nil {
		return Alert{}, false
	}

	msg := fmt.Sprintf("%s → %s: swing $%.2f - dividend $%.2f - tax $%.2f = net $%.2f advantage",
		holdingSymbol, swingSymbol,
		d.Breakdown.SwingProfit, d.Breakdown.LostDividend, d.Breakdown.TaxCost, d.NetAdvantageUSD)

	return Alert{
		Level:   AlertInfo,
		Title:   fmt.Sprintf("Swap signal: %s → %s", holdingSymbol, swingSymbol),
		Message: msg,
	}, true
}
