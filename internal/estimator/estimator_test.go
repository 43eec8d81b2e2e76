package estimator

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

func snapshot() model.IndicatorSnapshot {
	return model.IndicatorSnapshot{
		Close:            100,
		ATR:              model.Computed(3),
		ATRPct:           model.Computed(3),
		SMA20:            model.Computed(96),
		SMA50:            model.Computed(92),
		VolumeSurge:      model.Computed(1.8),
		VolRising:        true,
		Resistance:       model.Computed(115),
		ResistanceLevels: []float64{108, 115},
		MACDCrossAge:     -1,
	}
}

// ── target selection ─────────────────────────────────────────────

func TestEstimate_ResistanceCapsATRProjection(t *testing.T) {
	s := snapshot()
	scores := model.ScoreBreakdown{Momentum: 50} // adjust factor exactly 1.0

	// ATR projection: 100 × (1 + 4·3/100) = 112. Nearest resistance 108 is
	// lower, so it wins: return (108-100)/100 = 8%.
	est := Estimate(&s, scores, DefaultParams)
	assertClose(t, est.ReturnPct, 8, 1e-9)
}

func TestEstimate_ATRProjectionWhenResistanceFar(t *testing.T) {
	s := snapshot()
	s.ResistanceLevels = []float64{120}
	s.Resistance = model.Computed(120)
	scores := model.ScoreBreakdown{Momentum: 50}

	// ATR target 112 is below the 120 resistance: return 12%.
	est := Estimate(&s, scores, DefaultParams)
	assertClose(t, est.ReturnPct, 12, 1e-9)
}

func TestEstimate_RollingHighFallback(t *testing.T) {
	s := snapshot()
	s.ResistanceLevels = nil // close is already the window high
	s.Resistance = model.Computed(106)
	scores := model.ScoreBreakdown{Momentum: 50}

	est := Estimate(&s, scores, DefaultParams)
	assertClose(t, est.ReturnPct, 6, 1e-9)
}

func TestEstimate_NoTargetAboveCloseIsZero(t *testing.T) {
	s := snapshot()
	s.ATRPct = model.NotComputable
	s.ResistanceLevels = nil
	s.Resistance = model.Computed(95) // below close
	scores := model.ScoreBreakdown{Momentum: 50}

	est := Estimate(&s, scores, DefaultParams)
	if est.ReturnPct != 0 {
		t.Errorf("return %v, want 0", est.ReturnPct)
	}
}

// ── momentum adjustment and clipping ─────────────────────────────

func TestMomentumAdjust_Range(t *testing.T) {
	assertClose(t, momentumAdjust(0), 0.8, 1e-9)
	assertClose(t, momentumAdjust(50), 1.0, 1e-9)
	assertClose(t, momentumAdjust(100), 1.2, 1e-9)
}

func TestEstimate_MomentumScalesReturn(t *testing.T) {
	s := snapshot()

	weak := Estimate(&s, model.ScoreBreakdown{Momentum: 0}, DefaultParams)
	strong := Estimate(&s, model.ScoreBreakdown{Momentum: 100}, DefaultParams)

	assertClose(t, weak.ReturnPct, 8*0.8, 1e-9)
	assertClose(t, strong.ReturnPct, 8*1.2, 1e-9)
}

func TestEstimate_SwingBandClipsHigh(t *testing.T) {
	s := snapshot()
	s.ATRPct = model.Computed(8) // projection 100 × 1.32 = 132
	s.ResistanceLevels = []float64{140}
	s.Resistance = model.Computed(140)

	est := Estimate(&s, model.ScoreBreakdown{Momentum: 50}, DefaultParams)
	assertClose(t, est.ReturnPct, 20, 1e-9)
}

func TestEstimate_IntradayBandTighter(t *testing.T) {
	s := snapshot()
	p := DefaultParams
	p.Mode = ModeIntraday

	est := Estimate(&s, model.ScoreBreakdown{Momentum: 50}, p)
	assertClose(t, est.ReturnPct, 5, 1e-9) // 8% clipped to the intraday cap
}

func TestEstimate_BandFloorsTinyMove(t *testing.T) {
	s := snapshot()
	s.ATRPct = model.Computed(0.1)
	s.ResistanceLevels = []float64{100.2}
	s.Resistance = model.Computed(100.2)

	est := Estimate(&s, model.ScoreBreakdown{Momentum: 50}, DefaultParams)
	assertClose(t, est.ReturnPct, 1, 1e-9)
}

// ── confidence ───────────────────────────────────────────────────

func TestConfidence_FullAgreement(t *testing.T) {
	s := snapshot()
	// 0.55×80 + 20 (surge >1.5) + 5 (rising) + 10 (above SMA50) + 10 (above SMA20)
	assertClose(t, Confidence(&s, 80), 44+45, 1e-9)
}

func TestConfidence_NoAgreementIsScaledComposite(t *testing.T) {
	s := model.IndicatorSnapshot{Close: 100, MACDCrossAge: -1}
	assertClose(t, Confidence(&s, 60), 33, 1e-9)
}

func TestConfidence_ClippedAt100(t *testing.T) {
	s := snapshot()
	if got := Confidence(&s, 100); got != 100 {
		t.Errorf("got %v, want 100", got)
	}
}

func TestConfidence_MonotoneInComposite(t *testing.T) {
	s := snapshot()
	prev := -1.0
	for c := 0.0; c <= 100; c += 5 {
		conf := Confidence(&s, c)
		if conf < prev {
			t.Fatalf("confidence dropped from %v to %v at composite %v", prev, conf, c)
		}
		prev = conf
	}
}

// ── days to target ───────────────────────────────────────────────

func TestDaysToTarget(t *testing.T) {
	cases := []struct {
		atrPct model.Value
		want   int
	}{
		{model.Computed(3), 8},    // round(24/3)
		{model.Computed(5), 5},    // round(24/5) = 5
		{model.Computed(2), 10},   // 12 capped at max hold
		{model.Computed(30), 1},   // floor
		{model.NotComputable, 10}, // unreadable → hold limit
	}
	for _, c := range cases {
		if got := DaysToTarget(c.atrPct, 10); got != c.want {
			t.Errorf("atrPct %+v: got %d, want %d", c.atrPct, got, c.want)
		}
	}
}

func TestParams_Validate(t *testing.T) {
	if err := DefaultParams.Validate(); err != nil {
		t.Fatalf("default params invalid: %v", err)
	}
	bad := Params{Mode: "scalp", ATRMultiple: 4, MaxHoldDays: 10}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	bad = Params{Mode: ModeSwing, ATRMultiple: 0, MaxHoldDays: 10}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for zero atr multiple")
	}
}
