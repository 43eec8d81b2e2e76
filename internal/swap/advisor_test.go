package swap

import (
	"math"
	"testing"

	"swing-screenerv1/internal/model"
)

func assertClose(t *testing.T, got, want, eps float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Errorf("got %v, want %v (±%v)", got, want, eps)
	}
}

// The canonical income holding: 69.312 shares at $55.90 average cost.
func holding(price float64) model.SwapInputs {
	return model.SwapInputs{
		Shares:          69.312,
		AvgCost:         55.90,
		CurrentPrice:    price,
		MonthlyDividend: 19.15,
	}
}

// ── buy zones ────────────────────────────────────────────────────

func TestClassifyZone_Bands(t *testing.T) {
	cases := []struct {
		price float64
		want  model.BuyZone
	}{
		{50.00, model.ZoneStrongBuy}, // -10.6%
		{54.50, model.ZoneGoodBuy},   // -2.5%
		{57.00, model.ZoneHold},      // +2.0%
		{60.00, model.ZoneWait},      // +7.3%
	}
	for _, c := range cases {
		dev := DeviationPct(c.price, 55.90)
		if got := ClassifyZone(dev, DefaultParams); got != c.want {
			t.Errorf("price=%v (dev %.1f%%): got %v, want %v", c.price, dev, got, c.want)
		}
	}
}

func TestClassifyZone_PartitionsTheLine(t *testing.T) {
	// Sweep deviations and check every value lands in exactly one zone with
	// ordered boundaries: STRONG_BUY ≤ -5 < GOOD_BUY ≤ 0 < HOLD ≤ +7 < WAIT.
	prev := model.ZoneStrongBuy
	order := map[model.BuyZone]int{
		model.ZoneStrongBuy: 0,
		model.ZoneGoodBuy:   1,
		model.ZoneHold:      2,
		model.ZoneWait:      3,
	}
	for dev := -20.0; dev <= 20.0; dev += 0.25 {
		z := ClassifyZone(dev, DefaultParams)
		if order[z] < order[prev] {
			t.Fatalf("zone regressed from %v to %v at deviation %v", prev, z, dev)
		}
		prev = z
	}
}

func TestClassifyZone_BoundariesInclusive(t *testing.T) {
	if z := ClassifyZone(-5, DefaultParams); z != model.ZoneStrongBuy {
		t.Errorf("-5%% should be STRONG_BUY, got %v", z)
	}
	if z := ClassifyZone(0, DefaultParams); z != model.ZoneGoodBuy {
		t.Errorf("0%% should be GOOD_BUY, got %v", z)
	}
	if z := ClassifyZone(7, DefaultParams); z != model.ZoneHold {
		t.Errorf("+7%% should be HOLD, got %v", z)
	}
}

// ── sell evaluator ───────────────────────────────────────────────

func TestEvaluate_StrongCandidateSells(t *testing.T) {
	in := holding(62.47)
	in.SwingReturnPct = 15
	in.SwingConfidencePct = 80

	d := Evaluate(in, DefaultParams)
	if !d.ShouldSell {
		t.Fatalf("should sell, got %+v", d)
	}
	if d.Breakdown == nil {
		t.Fatal("expected a breakdown")
	}

	// position value 69.312 × 62.47 = 4329.92; swing profit 15% = 649.49
	// lost dividend 19.15/30×7 = 4.47; tax 30% of 455.38 gain = 136.61
	assertClose(t, d.Breakdown.SwingProfit, 649.49, 0.05)
	assertClose(t, d.Breakdown.LostDividend, 4.47, 0.01)
	assertClose(t, d.Breakdown.TaxCost, 136.61, 0.05)
	assertClose(t, d.NetAdvantageUSD, 508.41, 0.25)
}

func TestEvaluate_GateShortCircuits(t *testing.T) {
	in := holding(62.47)
	in.SwingReturnPct = 8
	in.SwingConfidencePct = 70

	d := Evaluate(in, DefaultParams)
	if d.ShouldSell {
		t.Fatal("gate miss must not sell")
	}
	if d.Breakdown != nil {
		t.Fatal("gate miss must not compute a breakdown")
	}
	if d.NetAdvantageUSD != 0 {
		t.Errorf("net advantage %v, want 0", d.NetAdvantageUSD)
	}
}

func TestEvaluate_BothGatesRequired(t *testing.T) {
	in := holding(62.47)
	in.SwingReturnPct = 20 // return alone is not enough
	in.SwingConfidencePct = 70
	if d := Evaluate(in, DefaultParams); d.Breakdown != nil {
		t.Error("high return with low confidence must short-circuit")
	}

	in.SwingReturnPct = 10 // confidence alone is not enough
	in.SwingConfidencePct = 95
	if d := Evaluate(in, DefaultParams); d.Breakdown != nil {
		t.Error("high confidence with low return must short-circuit")
	}
}

func TestEvaluate_SmallEdgeHolds(t *testing.T) {
	// Barely at the gate with a big embedded gain: taxes eat the edge.
	in := model.SwapInputs{
		Shares:             100,
		AvgCost:            20,
		CurrentPrice:       40, // $2000 unrealized gain, $600 tax
		MonthlyDividend:    30,
		SwingReturnPct:     15,
		SwingConfidencePct: 80,
	}
	d := Evaluate(in, DefaultParams)
	// swing profit 4000×0.15 = 600; tax 600; dividend 7 → net ≈ -7
	if d.ShouldSell {
		t.Fatalf("net %v should not clear the $100 floor", d.NetAdvantageUSD)
	}
	if d.Breakdown == nil {
		t.Fatal("eligible candidate should still get a breakdown")
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	in := holding(62.47)
	in.SwingReturnPct = 15
	in.SwingConfidencePct = 80

	a := Evaluate(in, DefaultParams)
	b := Evaluate(in, DefaultParams)
	if a.ShouldSell != b.ShouldSell || a.NetAdvantageUSD != b.NetAdvantageUSD || a.BuyZone != b.BuyZone {
		t.Errorf("decisions differ: %+v vs %+v", a, b)
	}
}

func TestParams_Validate(t *testing.T) {
	if err := DefaultParams.Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}
	bad := DefaultParams
	bad.ShortTermTaxRate = 1.5
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for tax rate above 1")
	}
	bad = DefaultParams
	bad.BandLow = -1
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for negative band")
	}
}
