package model

// Candidate is a stock that survived the fetch stage: quote data plus the
// indicator snapshot derived from its history. Filter stages read it but
// never mutate it — each stage emits a fresh survivor slice.
type Candidate struct {
	Symbol    string
	Name      string
	Price     float64
	MarketCap float64
	Snapshot  IndicatorSnapshot
}

// ScoreBreakdown holds the five technical sub-scores and their weighted
// composite. All values are in [0,100].
type ScoreBreakdown struct {
	MACD      float64 `json:"macd_score"`
	RSI       float64 `json:"rsi_score"`
	Volume    float64 `json:"volume_score"`
	Breakout  float64 `json:"breakout_score"`
	Momentum  float64 `json:"momentum_score"`
	Composite float64 `json:"composite_score"`
}

// TradeEstimate is the projected outcome for a candidate trade.
type TradeEstimate struct {
	ReturnPct     float64 `json:"estimated_return_pct"`
	ConfidencePct float64 `json:"confidence_pct"`
	DaysToTarget  int     `json:"days_to_target"`
}

// ScoredCandidate is a Candidate enriched with its score breakdown
// after the technical-scoring stage.
type ScoredCandidate struct {
	Candidate
	Scores ScoreBreakdown
}

// EstimatedCandidate is a ScoredCandidate enriched with its trade estimate
// after the return-estimation stage.
type EstimatedCandidate struct {
	ScoredCandidate
	Estimate TradeEstimate
}

// Tier is the discrete recommendation bucket for a screened opportunity.
type Tier int

const (
	TierNone Tier = iota
	Tier1Aggressive
	Tier2Moderate
	Tier3Wait
)

func (t Tier) String() string {
	switch t {
	case Tier1Aggressive:
		return "TIER_1_AGGRESSIVE"
	case Tier2Moderate:
		return "TIER_2_MODERATE"
	case Tier3Wait:
		return "TIER_3_WAIT"
	default:
		return "NONE"
	}
}

// Opportunity is the final ranked output of a scan: the estimated candidate,
// its tier, and the trade plan derived from it.
type Opportunity struct {
	EstimatedCandidate
	Tier            Tier
	EntryPrice      float64
	TargetPrice     float64
	StopPrice       float64
	Shares          int
	PositionValue   float64
	TargetProfit    float64
	MaxLoss         float64
	RiskReward      float64
	SupportLevels   []float64
	ResistanceLevel float64
}
