package screener

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"swing-screenerv1/internal/estimator"
	"swing-screenerv1/internal/indicator"
	"swing-screenerv1/internal/scoring"
	"swing-screenerv1/internal/swap"
	"swing-screenerv1/internal/tier"
)

// Thresholds is the single immutable configuration table for a scan run.
// It is validated once at pipeline construction; an invalid table is a
// construction error, never a per-stock failure.
type Thresholds struct {
	// Hard filter gates, stages 2-6.
	MinPrice         float64 `yaml:"min_price"`
	MaxPrice         float64 `yaml:"max_price"`
	MinVolume        float64 `yaml:"min_volume"`     // 20-day average shares/day
	MinMarketCap     float64 `yaml:"min_market_cap"` // USD
	MinVolatilityPct float64 `yaml:"min_volatility_pct"`

	// Outcome gates, stages 9-10.
	MinReturnPct     float64 `yaml:"min_return_pct"`
	MinConfidencePct float64 `yaml:"min_confidence_pct"`

	// Trade-plan sizing.
	CapitalPerTrade float64 `yaml:"capital_per_trade"`
	MaxLossPct      float64 `yaml:"max_loss_pct"`
	MinRiskReward   float64 `yaml:"min_risk_reward"`

	// HistoryBars is how much daily history the fetch stage requests.
	HistoryBars int `yaml:"history_bars"`

	Weights   scoring.Weights  `yaml:"score_weights"`
	Estimator estimator.Params `yaml:"estimator"`
	Tiers     tier.Thresholds  `yaml:"tiers"`
	Swap      swap.Params      `yaml:"swap"`
}

// DefaultThresholds is the swing-trade calibration: $5-500 stocks, 500K
// average volume, $500M market cap, 3% daily ATR, 8%/60% outcome gates.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinPrice:         5,
		MaxPrice:         500,
		MinVolume:        500_000,
		MinMarketCap:     500_000_000,
		MinVolatilityPct: 3.0,

		MinReturnPct:     8.0,
		MinConfidencePct: 60,

		CapitalPerTrade: 1000,
		MaxLossPct:      10,
		MinRiskReward:   1.5,

		HistoryBars: 90,

		Weights:   scoring.DefaultWeights,
		Estimator: estimator.DefaultParams,
		Tiers:     tier.DefaultThresholds,
		Swap:      swap.DefaultParams,
	}
}

// LoadThresholds reads a YAML threshold file over the defaults. A missing
// file is fine — the defaults stand. The result is always validated.
func LoadThresholds(path string) (Thresholds, error) {
	t := DefaultThresholds()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return t, fmt.Errorf("read thresholds: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, &t); err != nil {
				return t, fmt.Errorf("parse thresholds: %w", err)
			}
		}
	}
	applyEnvOverrides(&t)

	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// applyEnvOverrides lets the outcome gates and sizing be tuned per
// deployment without editing the thresholds file. File values win over
// defaults; env wins over both.
func applyEnvOverrides(t *Thresholds) {
	overrideFloat := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				log.Fatalf("[screener] %s=%q is not a number", key, v)
			}
			*dst = f
		}
	}
	overrideFloat("MIN_RETURN_PCT", &t.MinReturnPct)
	overrideFloat("MIN_CONFIDENCE_PCT", &t.MinConfidencePct)
	overrideFloat("CAPITAL_PER_TRADE", &t.CapitalPerTrade)
	overrideFloat("MAX_LOSS_PCT", &t.MaxLossPct)
}

// Validate rejects an inconsistent table before any stock is processed.
func (t Thresholds) Validate() error {
	if t.MinPrice < 0 || t.MaxPrice <= t.MinPrice {
		return fmt.Errorf("screener: price band [%v, %v] invalid", t.MinPrice, t.MaxPrice)
	}
	if t.MinVolume < 0 {
		return fmt.Errorf("screener: negative min volume %v", t.MinVolume)
	}
	if t.MinMarketCap < 0 {
		return fmt.Errorf("screener: negative min market cap %v", t.MinMarketCap)
	}
	if t.MinVolatilityPct < 0 {
		return fmt.Errorf("screener: negative min volatility %v", t.MinVolatilityPct)
	}
	if t.MinReturnPct < 0 || t.MinConfidencePct < 0 || t.MinConfidencePct > 100 {
		return fmt.Errorf("screener: outcome gates (%v%%, %v%%) invalid", t.MinReturnPct, t.MinConfidencePct)
	}
	if t.CapitalPerTrade <= 0 {
		return fmt.Errorf("screener: capital per trade %v, want > 0", t.CapitalPerTrade)
	}
	if t.MaxLossPct <= 0 || t.MaxLossPct >= 100 {
		return fmt.Errorf("screener: max loss %v%% outside (0, 100)", t.MaxLossPct)
	}
	if t.MinRiskReward < 0 {
		return fmt.Errorf("screener: negative min risk/reward %v", t.MinRiskReward)
	}
	if t.HistoryBars < indicator.MinBars {
		return fmt.Errorf("screener: history %d bars below indicator minimum %d", t.HistoryBars, indicator.MinBars)
	}
	if err := t.Weights.Validate(); err != nil {
		return err
	}
	if err := t.Estimator.Validate(); err != nil {
		return err
	}
	if err := t.Tiers.Validate(); err != nil {
		return err
	}
	return t.Swap.Validate()
}
