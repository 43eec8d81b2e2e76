package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"swing-screenerv1/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(StoreConfig{DBPath: filepath.Join(t.TempDir(), "screener.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport() *model.ScanReport {
	return &model.ScanReport{
		Universe:  "sp500",
		StartedAt: time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC),
		Elapsed:   3 * time.Second,
		Funnel: []model.StageResult{
			{StageIndex: 1, Name: "fetch", Description: "fetch history and quotes", InputCount: 3, PassedCount: 2, FailedCount: 1, PassRate: 2.0 / 3.0, Elapsed: time.Second,
				Failures: []model.StageFailure{{Symbol: "GONE", Reason: "market data unavailable"}}},
			{StageIndex: 2, Name: "price", Description: "price band", InputCount: 2, PassedCount: 2, PassRate: 1, Elapsed: time.Millisecond},
		},
		Opportunities: []model.Opportunity{
			{
				EstimatedCandidate: model.EstimatedCandidate{
					ScoredCandidate: model.ScoredCandidate{
						Candidate: model.Candidate{Symbol: "GOOD", Price: 100},
						Scores:    model.ScoreBreakdown{Composite: 82.5},
					},
					Estimate: model.TradeEstimate{ReturnPct: 9.4, ConfidencePct: 71, DaysToTarget: 4},
				},
				Tier:          model.Tier2Moderate,
				EntryPrice:    100,
				TargetPrice:   109.4,
				StopPrice:     90,
				Shares:        10,
				PositionValue: 1000,
				TargetProfit:  94,
				MaxLoss:       100,
				RiskReward:    0.94,
			},
		},
	}
}

func TestRecordScan_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	scanID, err := s.RecordScan(sampleReport())
	if err != nil {
		t.Fatalf("record scan: %v", err)
	}
	if scanID <= 0 {
		t.Fatalf("scan id = %d, want > 0", scanID)
	}

	var stages, opps int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM scan_stages WHERE scan_id = ?`, scanID).Scan(&stages); err != nil {
		t.Fatalf("count stages: %v", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM opportunities WHERE scan_id = ?`, scanID).Scan(&opps); err != nil {
		t.Fatalf("count opportunities: %v", err)
	}
	if stages != 2 || opps != 1 {
		t.Errorf("persisted stages=%d opps=%d, want 2 and 1", stages, opps)
	}

	universe, startedAt, ok, err := s.LastScan()
	if err != nil || !ok {
		t.Fatalf("last scan: ok=%v err=%v", ok, err)
	}
	if universe != "sp500" {
		t.Errorf("last scan universe = %q, want sp500", universe)
	}
	if !startedAt.Equal(time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)) {
		t.Errorf("last scan started at %v", startedAt)
	}
}

func TestLastScan_EmptyTable(t *testing.T) {
	s := openTestStore(t)

	_, _, ok, err := s.LastScan()
	if err != nil {
		t.Fatalf("last scan: %v", err)
	}
	if ok {
		t.Error("last scan ok = true on empty table")
	}
}

func TestPruneScans(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		if _, err := s.RecordScan(sampleReport()); err != nil {
			t.Fatalf("record scan %d: %v", i, err)
		}
	}
	if err := s.PruneScans(2); err != nil {
		t.Fatalf("prune: %v", err)
	}

	var scans, opps int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM scans`).Scan(&scans); err != nil {
		t.Fatalf("count scans: %v", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM opportunities`).Scan(&opps); err != nil {
		t.Fatalf("count opportunities: %v", err)
	}
	if scans != 2 || opps != 2 {
		t.Errorf("after prune scans=%d opps=%d, want 2 and 2", scans, opps)
	}
}

func TestPositions_Lifecycle(t *testing.T) {
	s := openTestStore(t)

	pos := model.OpenPosition{
		Symbol:      "NVDA",
		EntryPrice:  487.23,
		TargetPrice: 566.00,
		StopPrice:   438.75,
		Shares:      2,
		EnteredOn:   time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		MaxHoldDays: 10,
	}
	if err := s.SavePosition(pos); err != nil {
		t.Fatalf("save position: %v", err)
	}

	open, err := s.OpenPositions()
	if err != nil {
		t.Fatalf("open positions: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("open positions = %d, want 1", len(open))
	}
	if open[0] != pos {
		t.Errorf("round-tripped position = %+v, want %+v", open[0], pos)
	}

	if err := s.ClosePosition("NVDA", model.StatusTargetHit); err != nil {
		t.Fatalf("close position: %v", err)
	}
	open, err = s.OpenPositions()
	if err != nil {
		t.Fatalf("open positions after close: %v", err)
	}
	if len(open) != 0 {
		t.Errorf("open positions after close = %d, want 0", len(open))
	}
}

func TestClosePosition_NotOpen(t *testing.T) {
	s := openTestStore(t)

	if err := s.ClosePosition("NVDA", model.StatusStopHit); err == nil {
		t.Error("closing a missing position did not error")
	}
}

func TestSavePosition_ReopensClosed(t *testing.T) {
	s := openTestStore(t)

	pos := model.OpenPosition{Symbol: "AAPL", EntryPrice: 190, TargetPrice: 210, StopPrice: 171,
		Shares: 5, EnteredOn: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), MaxHoldDays: 10}
	if err := s.SavePosition(pos); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.ClosePosition("AAPL", model.StatusTimeExpired); err != nil {
		t.Fatalf("close: %v", err)
	}

	pos.EntryPrice = 195
	if err := s.SavePosition(pos); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	open, err := s.OpenPositions()
	if err != nil {
		t.Fatalf("open positions: %v", err)
	}
	if len(open) != 1 || open[0].EntryPrice != 195 {
		t.Errorf("re-saved position = %+v", open)
	}
}

func TestDecisions_NewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		d := model.PositionDecision{
			Symbol:        "NVDA",
			Status:        model.StatusHold,
			CurrentPrice:  490 + float64(i),
			CurrentPnLPct: float64(i),
			DaysHeld:      i,
			CheckedAt:     base.Add(time.Duration(i) * 15 * time.Minute),
		}
		if err := s.RecordDecision(d); err != nil {
			t.Fatalf("record decision %d: %v", i, err)
		}
	}

	decisions, err := s.Decisions("NVDA", 2)
	if err != nil {
		t.Fatalf("decisions: %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("decisions = %d, want 2", len(decisions))
	}
	if decisions[0].CurrentPrice != 492 || decisions[1].CurrentPrice != 491 {
		t.Errorf("decision order: got prices %.0f, %.0f, want 492, 491",
			decisions[0].CurrentPrice, decisions[1].CurrentPrice)
	}
}
