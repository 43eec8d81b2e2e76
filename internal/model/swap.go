package model

// BuyZone classifies the current price of an income holding against its
// average cost. The four zones partition the deviation line with no gaps.
type BuyZone string

const (
	ZoneStrongBuy BuyZone = "STRONG_BUY"
	ZoneGoodBuy   BuyZone = "GOOD_BUY"
	ZoneHold      BuyZone = "HOLD"
	ZoneWait      BuyZone = "WAIT"
)

// SwapInputs describes a held dividend position and the swing candidate
// competing for its capital.
type SwapInputs struct {
	Shares             float64 `json:"shares"`
	AvgCost            float64 `json:"avg_cost"`
	CurrentPrice       float64 `json:"current_price"`
	MonthlyDividend    float64 `json:"monthly_dividend"` // USD per month for the whole position
	SwingReturnPct     float64 `json:"swing_return_pct"`
	SwingConfidencePct float64 `json:"swing_confidence_pct"`
}

// SwapBreakdown itemizes the cost/benefit of liquidating the income position.
type SwapBreakdown struct {
	SwingProfit  float64 `json:"swing_profit"`
	LostDividend float64 `json:"lost_dividend"`
	TaxCost      float64 `json:"tax_cost"`
}

// SwapDecision is the advisor's verdict on swapping the income position
// for the swing trade. Breakdown is nil when the candidate failed the
// return/confidence gate and no cost/benefit math was run.
type SwapDecision struct {
	BuyZone         BuyZone        `json:"buy_zone"`
	DeviationPct    float64        `json:"deviation_pct"`
	ShouldSell      bool           `json:"should_sell"`
	NetAdvantageUSD float64        `json:"net_advantage_usd"`
	Reason          string         `json:"reason"`
	Breakdown       *SwapBreakdown `json:"breakdown,omitempty"`
}
