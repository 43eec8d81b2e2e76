// Package tier buckets estimated candidates into recommendation tiers and
// ranks them deterministically.
package tier

import (
	"fmt"
	"sort"

	"swing-screenerv1/internal/model"
)

// Thresholds are the two (return, confidence) gates. Tier 1 requires both
// tier-1 gates; tier 2 both tier-2 gates; anything below falls to tier 3.
type Thresholds struct {
	Tier1Return     float64 `yaml:"tier1_return"`
	Tier1Confidence float64 `yaml:"tier1_confidence"`
	Tier2Return     float64 `yaml:"tier2_return"`
	Tier2Confidence float64 `yaml:"tier2_confidence"`
}

// DefaultThresholds gate tier 1 at 15%/75 and tier 2 at 8%/60.
var DefaultThresholds = Thresholds{
	Tier1Return:     15,
	Tier1Confidence: 75,
	Tier2Return:     8,
	Tier2Confidence: 60,
}

// Validate rejects gates where tier 2 is not strictly easier than tier 1.
func (t Thresholds) Validate() error {
	if t.Tier2Return >= t.Tier1Return {
		return fmt.Errorf("tier: tier2 return gate %v must be below tier1 %v", t.Tier2Return, t.Tier1Return)
	}
	if t.Tier2Confidence >= t.Tier1Confidence {
		return fmt.Errorf("tier: tier2 confidence gate %v must be below tier1 %v", t.Tier2Confidence, t.Tier1Confidence)
	}
	return nil
}

// Classify maps a trade estimate onto its tier.
func Classify(est model.TradeEstimate, t Thresholds) model.Tier {
	switch {
	case est.ReturnPct >= t.Tier1Return && est.ConfidencePct >= t.Tier1Confidence:
		return model.Tier1Aggressive
	case est.ReturnPct >= t.Tier2Return && est.ConfidencePct >= t.Tier2Confidence:
		return model.Tier2Moderate
	default:
		return model.Tier3Wait
	}
}

// Rank sorts opportunities in place: tier ascending (tier 1 first), then
// composite score descending, confidence descending, and finally symbol
// ascending so equal candidates always come out in the same order.
func Rank(opps []model.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		a, b := opps[i], opps[j]
		if a.Tier != b.Tier {
			return rankKey(a.Tier) < rankKey(b.Tier)
		}
		if a.Scores.Composite != b.Scores.Composite {
			return a.Scores.Composite > b.Scores.Composite
		}
		if a.Estimate.ConfidencePct != b.Estimate.ConfidencePct {
			return a.Estimate.ConfidencePct > b.Estimate.ConfidencePct
		}
		return a.Symbol < b.Symbol
	})
}

// rankKey orders tiers for display: 1, 2, 3, then unclassified.
func rankKey(t model.Tier) int {
	if t == model.TierNone {
		return int(model.Tier3Wait) + 1
	}
	return int(t)
}
