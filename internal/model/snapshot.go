package model

// Value is an indicator reading that is only meaningful once the indicator's
// lookback is satisfied. The zero Value is NotComputable — consumers must
// check OK instead of treating 0 as a real reading.
type Value struct {
	V  float64 `json:"v"`
	OK bool    `json:"ok"`
}

// NotComputable is the sentinel for an indicator with unmet history.
var NotComputable = Value{}

// Computed wraps a real indicator reading.
func Computed(v float64) Value { return Value{V: v, OK: true} }

// Or returns the reading, or fallback when not computable.
func (v Value) Or(fallback float64) float64 {
	if v.OK {
		return v.V
	}
	return fallback
}

// IndicatorSnapshot is a derived, read-only view over a PriceBar sequence at
// its final index. Every field whose lookback exceeds the available history
// is NotComputable. Built by indicator.Compute; consumed by the filter
// stages, the scoring engine, and the return estimator.
type IndicatorSnapshot struct {
	Close  float64
	Volume int64

	RSI14   Value
	RSIPrev Value // RSI two bars earlier, for slope checks

	MACDLine     Value
	MACDSignal   Value
	MACDHist     Value
	MACDHistPrev Value
	// MACDCrossAge is the number of bars since the histogram last flipped
	// negative→positive within the crossover lookback; -1 when none.
	MACDCrossAge int
	MACDRange    Value // high-low span of the MACD line over the range lookback

	SMA20 Value
	SMA50 Value

	ATR    Value
	ATRPct Value // ATR / close × 100

	VolumeAvg20 Value
	VolumeSurge Value // current volume / 20-bar average
	// VolAboveAvg5 counts, among the last 5 bars, those with volume above the
	// 20-bar average at that bar.
	VolAboveAvg5  int
	VolRising     bool // last volume above the volume three bars back
	VolRisingSlow bool // last volume above the volume two bars back

	Support    Value // rolling low over the S/R lookback
	Resistance Value // rolling high over the S/R lookback
	// Nearest levels relative to the current close: supports below (descending),
	// resistances above (ascending).
	SupportLevels    []float64
	ResistanceLevels []float64
	High20           Value // highest high of the last 20 bars

	Mom5 Value // 5-bar rate of change, percent
	Mom3 Value // 3-bar rate of change, percent
	// HigherHighs is true when the last 5 highs form a rising sequence
	// (small dips under 2% tolerated). High5Up is the weaker condition:
	// last high simply above the high five bars back.
	HigherHighs bool
	High5Up     bool
}

// TrendOK reports whether the close sits above the 50-bar mean.
// False when SMA50 is not computable.
func (s *IndicatorSnapshot) TrendOK() bool {
	return s.SMA50.OK && s.Close > s.SMA50.V
}

// Computable reports whether the core score inputs exist. A snapshot from a
// history shorter than the longest lookback fails this and scores zero.
func (s *IndicatorSnapshot) Computable() bool {
	return s.RSI14.OK && s.MACDHist.OK && s.SMA50.OK && s.ATR.OK && s.VolumeAvg20.OK
}
