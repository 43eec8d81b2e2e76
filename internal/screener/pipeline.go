// Package screener runs the scan funnel: a fixed ordered sequence of ten
// stages that shrinks a symbol universe down to ranked trade opportunities.
//
// Stages 2-10 are pure batch transforms; only stage 1 (fetch) does I/O, on a
// bounded worker pool sized to the vendor's rate tolerance. Stage boundaries
// are synchronous barriers — every stage reports counts over the entire
// surviving batch before the next one starts. A stock that fails a stage is
// recorded with its reason and never re-admitted.
package screener

import (
	"context"
	"fmt"
	"sort"
	"time"

	"swing-screenerv1/internal/estimator"
	"swing-screenerv1/internal/indicator"
	"swing-screenerv1/internal/model"
	"swing-screenerv1/internal/scoring"
	"swing-screenerv1/internal/tier"
)

// Pipeline is an immutable scan configuration: threshold table, data
// provider and fetch concurrency. Safe for concurrent Run calls.
type Pipeline struct {
	cfg      Thresholds
	provider model.MarketDataProvider
	workers  int
}

// NewPipeline validates the threshold table and builds a pipeline.
func NewPipeline(cfg Thresholds, provider model.MarketDataProvider, fetchWorkers int) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, fmt.Errorf("screener: nil market data provider")
	}
	if fetchWorkers < 1 {
		fetchWorkers = 1
	}
	return &Pipeline{cfg: cfg, provider: provider, workers: fetchWorkers}, nil
}

// Run executes the full funnel over the universe. An empty funnel is a
// valid outcome; the only error returns are context cancellation between
// stages. Per-symbol failures are recorded in the stage results.
func (p *Pipeline) Run(ctx context.Context, universe string, symbols []string) (*model.ScanReport, error) {
	report := &model.ScanReport{
		Universe:  universe,
		StartedAt: time.Now(),
	}

	// Stage 1: fetch history + quote, compute indicator snapshots.
	candidates, res := p.fetchStage(ctx, symbols)
	report.Funnel = append(report.Funnel, res)
	if err := ctx.Err(); err != nil {
		report.Elapsed = time.Since(report.StartedAt)
		return report, err
	}

	// Stages 2-6: hard filters.
	for i, f := range p.hardFilters() {
		candidates, res = filterStage(2+i, f, candidates)
		report.Funnel = append(report.Funnel, res)
		if err := ctx.Err(); err != nil {
			report.Elapsed = time.Since(report.StartedAt)
			return report, err
		}
	}

	// Stage 7: technical scoring. Only NotComputable indicators exclude.
	scored, res := p.scoreStage(candidates)
	report.Funnel = append(report.Funnel, res)

	// Stage 8: return estimation, never filters.
	estimated, res := p.estimateStage(scored)
	report.Funnel = append(report.Funnel, res)
	if err := ctx.Err(); err != nil {
		report.Elapsed = time.Since(report.StartedAt)
		return report, err
	}

	// Stages 9-10: outcome gates.
	estimated, res = estimateGate(9, "Return Threshold",
		fmt.Sprintf("estimated return ≥ %.1f%%", p.cfg.MinReturnPct),
		estimated, func(ec model.EstimatedCandidate) (bool, string) {
			if ec.Estimate.ReturnPct >= p.cfg.MinReturnPct {
				return true, ""
			}
			return false, fmt.Sprintf("estimated return %.1f%% below %.1f%%", ec.Estimate.ReturnPct, p.cfg.MinReturnPct)
		})
	report.Funnel = append(report.Funnel, res)

	estimated, res = estimateGate(10, "Confidence Threshold",
		fmt.Sprintf("confidence ≥ %.0f%%", p.cfg.MinConfidencePct),
		estimated, func(ec model.EstimatedCandidate) (bool, string) {
			if ec.Estimate.ConfidencePct >= p.cfg.MinConfidencePct {
				return true, ""
			}
			return false, fmt.Sprintf("confidence %.0f%% below %.0f%%", ec.Estimate.ConfidencePct, p.cfg.MinConfidencePct)
		})
	report.Funnel = append(report.Funnel, res)

	// Classify, build trade plans, rank. A plan whose reward does not cover
	// its risk is dropped here rather than ever reaching the report.
	for _, ec := range estimated {
		tr := tier.Classify(ec.Estimate, p.cfg.Tiers)
		opp := buildOpportunity(ec, tr, p.cfg)
		if opp.RiskReward < p.cfg.MinRiskReward {
			continue
		}
		report.Opportunities = append(report.Opportunities, opp)
	}
	tier.Rank(report.Opportunities)

	report.Elapsed = time.Since(report.StartedAt)
	return report, nil
}

// ── stage 1: fetch ──

type fetched struct {
	idx  int
	cand model.Candidate
	err  error
}

func (p *Pipeline) fetchStage(ctx context.Context, symbols []string) ([]model.Candidate, model.StageResult) {
	start := time.Now()

	jobs := make(chan int)
	// Buffered so workers never block if collection stops on cancellation.
	results := make(chan fetched, len(symbols))

	for w := 0; w < p.workers; w++ {
		go func() {
			for idx := range jobs {
				cand, err := p.fetchOne(ctx, symbols[idx])
				results <- fetched{idx: idx, cand: cand, err: err}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for i := range symbols {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	collected := make([]fetched, 0, len(symbols))
	pending := len(symbols)
	for pending > 0 {
		select {
		case f := <-results:
			collected = append(collected, f)
			pending--
		case <-ctx.Done():
			pending = 0
		}
	}
	// Input order, so runs are reproducible symbol-for-symbol.
	sort.Slice(collected, func(i, j int) bool { return collected[i].idx < collected[j].idx })

	var survivors []model.Candidate
	res := model.StageResult{
		StageIndex:  1,
		Name:        "Initial Load",
		Description: fmt.Sprintf("history retrieved with ≥ %d bars", indicator.MinBars),
		InputCount:  len(symbols),
	}
	for _, f := range collected {
		if f.err != nil {
			res.Failures = append(res.Failures, model.StageFailure{
				Symbol: symbols[f.idx],
				Reason: f.err.Error(),
			})
			continue
		}
		survivors = append(survivors, f.cand)
	}
	res.PassedCount = len(survivors)
	res.FailedCount = res.InputCount - res.PassedCount
	res.PassRate = passRate(res.PassedCount, res.InputCount)
	res.Elapsed = time.Since(start)
	return survivors, res
}

func (p *Pipeline) fetchOne(ctx context.Context, symbol string) (model.Candidate, error) {
	h, err := p.provider.History(ctx, symbol, p.cfg.HistoryBars)
	if err != nil {
		return model.Candidate{}, fmt.Errorf("%s: %w", symbol, err)
	}
	if h.Len() < indicator.MinBars {
		return model.Candidate{}, fmt.Errorf("%s: %w: %d bars, need %d",
			symbol, model.ErrInsufficientHistory, h.Len(), indicator.MinBars)
	}

	q, err := p.provider.Quote(ctx, symbol)
	if err != nil {
		return model.Candidate{}, fmt.Errorf("%s quote: %w", symbol, err)
	}

	snap := indicator.Compute(h)
	price := q.Price
	if price <= 0 {
		price = snap.Close
	}
	return model.Candidate{
		Symbol:    symbol,
		Name:      q.Name,
		Price:     price,
		MarketCap: q.MarketCap,
		Snapshot:  snap,
	}, nil
}

// ── stages 2-6: hard filters ──

type hardFilter struct {
	name, desc string
	pass       func(*model.Candidate) (bool, string)
}

func (p *Pipeline) hardFilters() []hardFilter {
	cfg := p.cfg
	return []hardFilter{
		{
			name: "Price Filter",
			desc: fmt.Sprintf("$%.2f ≤ close ≤ $%.2f", cfg.MinPrice, cfg.MaxPrice),
			pass: func(c *model.Candidate) (bool, string) {
				close := c.Snapshot.Close
				if close < cfg.MinPrice || close > cfg.MaxPrice {
					return false, fmt.Sprintf("close $%.2f outside [$%.2f, $%.2f]", close, cfg.MinPrice, cfg.MaxPrice)
				}
				return true, ""
			},
		},
		{
			name: "Volume Filter",
			desc: fmt.Sprintf("20-day avg volume ≥ %.0f", cfg.MinVolume),
			pass: func(c *model.Candidate) (bool, string) {
				v := c.Snapshot.VolumeAvg20
				if !v.OK {
					return false, "volume average not computable"
				}
				if v.V < cfg.MinVolume {
					return false, fmt.Sprintf("avg volume %.0f below %.0f", v.V, cfg.MinVolume)
				}
				return true, ""
			},
		},
		{
			name: "Market Cap Filter",
			desc: fmt.Sprintf("market cap ≥ $%.0f", cfg.MinMarketCap),
			pass: func(c *model.Candidate) (bool, string) {
				if c.MarketCap < cfg.MinMarketCap {
					return false, fmt.Sprintf("market cap $%.0f below $%.0f", c.MarketCap, cfg.MinMarketCap)
				}
				return true, ""
			},
		},
		{
			name: "Volatility Filter",
			desc: fmt.Sprintf("ATR ≥ %.1f%% of price", cfg.MinVolatilityPct),
			pass: func(c *model.Candidate) (bool, string) {
				a := c.Snapshot.ATRPct
				if !a.OK {
					return false, "ATR not computable"
				}
				if a.V < cfg.MinVolatilityPct {
					return false, fmt.Sprintf("ATR %.2f%% below %.1f%%", a.V, cfg.MinVolatilityPct)
				}
				return true, ""
			},
		},
		{
			name: "Trend Filter",
			desc: "close above SMA50",
			pass: func(c *model.Candidate) (bool, string) {
				if !c.Snapshot.SMA50.OK {
					return false, "SMA50 not computable"
				}
				if !c.Snapshot.TrendOK() {
					return false, fmt.Sprintf("close $%.2f at or below SMA50 $%.2f", c.Snapshot.Close, c.Snapshot.SMA50.V)
				}
				return true, ""
			},
		},
	}
}

func filterStage(index int, f hardFilter, input []model.Candidate) ([]model.Candidate, model.StageResult) {
	start := time.Now()
	res := model.StageResult{
		StageIndex:  index,
		Name:        f.name,
		Description: f.desc,
		InputCount:  len(input),
	}
	var survivors []model.Candidate
	for i := range input {
		ok, reason := f.pass(&input[i])
		if !ok {
			res.Failures = append(res.Failures, model.StageFailure{Symbol: input[i].Symbol, Reason: reason})
			continue
		}
		survivors = append(survivors, input[i])
	}
	res.PassedCount = len(survivors)
	res.FailedCount = res.InputCount - res.PassedCount
	res.PassRate = passRate(res.PassedCount, res.InputCount)
	res.Elapsed = time.Since(start)
	return survivors, res
}

// ── stage 7: scoring ──

func (p *Pipeline) scoreStage(input []model.Candidate) ([]model.ScoredCandidate, model.StageResult) {
	start := time.Now()
	res := model.StageResult{
		StageIndex:  7,
		Name:        "Technical Scoring",
		Description: "weighted five-factor composite",
		InputCount:  len(input),
	}
	var scored []model.ScoredCandidate
	for i := range input {
		c := input[i]
		if !c.Snapshot.Computable() {
			res.Failures = append(res.Failures, model.StageFailure{Symbol: c.Symbol, Reason: "core indicators not computable"})
			continue
		}
		scored = append(scored, model.ScoredCandidate{
			Candidate: c,
			Scores:    scoring.Score(&c.Snapshot, p.cfg.Weights),
		})
	}
	res.PassedCount = len(scored)
	res.FailedCount = res.InputCount - res.PassedCount
	res.PassRate = passRate(res.PassedCount, res.InputCount)
	res.Elapsed = time.Since(start)
	return scored, res
}

// ── stage 8: return estimation ──

func (p *Pipeline) estimateStage(input []model.ScoredCandidate) ([]model.EstimatedCandidate, model.StageResult) {
	start := time.Now()
	res := model.StageResult{
		StageIndex:  8,
		Name:        "Return Estimation",
		Description: "projected return, confidence and days to target",
		InputCount:  len(input),
	}
	estimated := make([]model.EstimatedCandidate, 0, len(input))
	for i := range input {
		sc := input[i]
		estimated = append(estimated, model.EstimatedCandidate{
			ScoredCandidate: sc,
			Estimate:        estimator.Estimate(&sc.Snapshot, sc.Scores, p.cfg.Estimator),
		})
	}
	res.PassedCount = len(estimated)
	res.FailedCount = 0
	res.PassRate = passRate(res.PassedCount, res.InputCount)
	res.Elapsed = time.Since(start)
	return estimated, res
}

// ── stages 9-10: outcome gates ──

func estimateGate(index int, name, desc string, input []model.EstimatedCandidate,
	pass func(model.EstimatedCandidate) (bool, string)) ([]model.EstimatedCandidate, model.StageResult) {

	start := time.Now()
	res := model.StageResult{
		StageIndex:  index,
		Name:        name,
		Description: desc,
		InputCount:  len(input),
	}
	var survivors []model.EstimatedCandidate
	for _, ec := range input {
		ok, reason := pass(ec)
		if !ok {
			res.Failures = append(res.Failures, model.StageFailure{Symbol: ec.Symbol, Reason: reason})
			continue
		}
		survivors = append(survivors, ec)
	}
	res.PassedCount = len(survivors)
	res.FailedCount = res.InputCount - res.PassedCount
	res.PassRate = passRate(res.PassedCount, res.InputCount)
	res.Elapsed = time.Since(start)
	return survivors, res
}

func passRate(passed, input int) float64 {
	if input == 0 {
		return 0
	}
	return float64(passed) / float64(input)
}
