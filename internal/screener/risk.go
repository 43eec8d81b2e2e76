package screener

import "swing-screenerv1/internal/model"

// Trade-plan math: position sizing and stop/target placement for an
// estimated candidate. All pure helpers over the threshold table.

// stopLoss is the plain percent stop below entry.
func stopLoss(entry, maxLossPct float64) float64 {
	return entry * (1 - maxLossPct/100)
}

// adjustedStop places the stop 1% under the nearest support below entry,
// but never wider than the percent stop.
func adjustedStop(entry float64, supports []float64, maxLossPct float64) float64 {
	stop := stopLoss(entry, maxLossPct)
	nearest := 0.0
	for _, s := range supports {
		if s < entry && s > nearest {
			nearest = s
		}
	}
	if nearest == 0 {
		return stop
	}
	if adj := nearest * 0.99; adj > stop {
		return adj
	}
	return stop
}

// positionSize converts per-trade capital into whole shares.
func positionSize(entry, capital float64) (shares int, value float64) {
	if entry <= 0 {
		return 0, 0
	}
	shares = int(capital / entry)
	return shares, float64(shares) * entry
}

// riskReward is potential gain over potential loss; 0 when the stop sits
// at or above entry.
func riskReward(entry, target, stop float64) float64 {
	loss := entry - stop
	if loss <= 0 {
		return 0
	}
	return (target - entry) / loss
}

// buildOpportunity turns an estimated candidate into the final trade plan.
func buildOpportunity(ec model.EstimatedCandidate, tr model.Tier, t Thresholds) model.Opportunity {
	entry := ec.Snapshot.Close
	target := entry * (1 + ec.Estimate.ReturnPct/100)
	stop := adjustedStop(entry, ec.Snapshot.SupportLevels, t.MaxLossPct)
	shares, value := positionSize(entry, t.CapitalPerTrade)

	resistance := 0.0
	if len(ec.Snapshot.ResistanceLevels) > 0 {
		resistance = ec.Snapshot.ResistanceLevels[0]
	} else {
		resistance = ec.Snapshot.Resistance.Or(0)
	}

	return model.Opportunity{
		EstimatedCandidate: ec,
		Tier:               tr,
		EntryPrice:         entry,
		TargetPrice:        target,
		StopPrice:          stop,
		Shares:             shares,
		PositionValue:      value,
		TargetProfit:       (target - entry) * float64(shares),
		MaxLoss:            (entry - stop) * float64(shares),
		RiskReward:         riskReward(entry, target, stop),
		SupportLevels:      ec.Snapshot.SupportLevels,
		ResistanceLevel:    resistance,
	}
}
