package indicator

import (
	"sort"

	"swing-screenerv1/internal/model"
)

// Standard lookbacks. MinBars is the longest one — histories shorter than it
// still produce a snapshot, with the starved fields NotComputable.
const (
	RSIPeriod     = 14
	MACDFast      = 12
	MACDSlow      = 26
	MACDSignalLen = 9
	ATRPeriod     = 14
	SMAFastLen    = 20
	SMATrendLen   = 50
	VolumeLen     = 20
	SRLookback    = 20

	// Bars within which a histogram sign flip still counts as a fresh
	// bullish crossover.
	CrossLookback = 3

	// Window for normalizing MACD line strength.
	MACDRangeLookback = 20

	MinBars = SMATrendLen
)

// Compute derives an IndicatorSnapshot at the final bar of the history.
// It is a pure function of the bar sequence: one forward pass through the
// streaming indicators plus a handful of tail reads. Fields whose lookback
// exceeds len(bars) come back NotComputable — never zero-filled.
func Compute(h *model.History) model.IndicatorSnapshot {
	bars := h.Bars
	snap := model.IndicatorSnapshot{MACDCrossAge: -1}
	if len(bars) == 0 {
		return snap
	}

	rsi := NewRSI(RSIPeriod)
	macd := NewMACD(MACDFast, MACDSlow, MACDSignalLen)
	atr := NewATR(ATRPeriod)
	sma20 := NewSMA(SMAFastLen)
	sma50 := NewSMA(SMATrendLen)
	volAvg := NewVolumeAvg(VolumeLen)
	hilo := NewHiLo(SRLookback)

	// Tail state carried across the pass.
	var (
		rsiTail   []float64 // last 3 RSI values
		histTail  []float64 // last 2 histogram values
		lineTail  []float64 // last MACDRangeLookback line values
		volTail   []volAt   // last 5 (volume, rolling average) pairs
		crossedAt = -1      // bar index of last bullish histogram flip
	)

	for i, bar := range bars {
		rsi.Update(bar)
		atr.Update(bar)
		sma20.Update(bar)
		sma50.Update(bar)
		volAvg.Update(bar)
		hilo.Update(bar)

		prevReady := macd.SignalReady()
		prevHist := macd.Hist()
		macd.Update(bar)

		if rsi.Ready() {
			rsiTail = appendTail(rsiTail, rsi.Value(), 3)
		}
		if macd.Ready() {
			lineTail = appendTail(lineTail, macd.Value(), MACDRangeLookback)
		}
		if macd.SignalReady() {
			histTail = appendTail(histTail, macd.Hist(), 2)
			// Bullish crossover: histogram sign flips non-positive → positive
			if prevReady && prevHist <= 0 && macd.Hist() > 0 {
				crossedAt = i
			}
		}
		volTail = appendVolTail(volTail, volAt{
			vol: bar.Volume,
			avg: volAvg.Value(),
			ok:  volAvg.Ready(),
		}, 5)
	}

	last := bars[len(bars)-1]
	snap.Close = last.Close
	snap.Volume = last.Volume

	snap.RSI14 = reading(rsi)
	if len(rsiTail) == 3 {
		snap.RSIPrev = model.Computed(rsiTail[0])
	}

	if macd.Ready() {
		snap.MACDLine = model.Computed(macd.Value())
	}
	if macd.SignalReady() {
		snap.MACDSignal = model.Computed(macd.Signal())
		snap.MACDHist = model.Computed(macd.Hist())
	}
	if len(histTail) == 2 {
		snap.MACDHistPrev = model.Computed(histTail[0])
	}
	if crossedAt >= 0 {
		age := len(bars) - 1 - crossedAt
		if age <= CrossLookback {
			snap.MACDCrossAge = age
		}
	}
	if len(lineTail) >= 2 {
		lo, hi := lineTail[0], lineTail[0]
		for _, v := range lineTail[1:] {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		snap.MACDRange = model.Computed(hi - lo)
	}

	snap.SMA20 = reading(sma20)
	snap.SMA50 = reading(sma50)

	snap.ATR = reading(atr)
	if snap.ATR.OK && last.Close > 0 {
		snap.ATRPct = model.Computed(snap.ATR.V / last.Close * 100)
	}

	snap.VolumeAvg20 = reading(volAvg)
	if snap.VolumeAvg20.OK && snap.VolumeAvg20.V > 0 {
		snap.VolumeSurge = model.Computed(volAvg.SurgeRatio())
	}
	for _, v := range volTail {
		if v.ok && float64(v.vol) > v.avg {
			snap.VolAboveAvg5++
		}
	}
	if len(volTail) >= 3 {
		snap.VolRising = volTail[len(volTail)-1].vol > volTail[len(volTail)-3].vol
	}
	if len(volTail) >= 2 {
		snap.VolRisingSlow = volTail[len(volTail)-1].vol > volTail[len(volTail)-2].vol
	}

	if hilo.Ready() {
		snap.Support = model.Computed(hilo.Low())
		snap.Resistance = model.Computed(hilo.High())
	}
	snap.SupportLevels, snap.ResistanceLevels = nearestLevels(hilo, last.Close)
	if len(bars) >= SRLookback {
		snap.High20 = model.Computed(hilo.High())
	}

	snap.Mom5 = rateOfChange(bars, 5)
	snap.Mom3 = rateOfChange(bars, 3)
	snap.HigherHighs = higherHighs(bars, 5)
	if len(bars) >= 5 {
		snap.High5Up = last.High > bars[len(bars)-5].High
	}
	return snap
}

type volAt struct {
	vol int64
	avg float64
	ok  bool
}

func appendTail(tail []float64, v float64, max int) []float64 {
	tail = append(tail, v)
	if len(tail) > max {
		tail = tail[1:]
	}
	return tail
}

func appendVolTail(tail []volAt, v volAt, max int) []volAt {
	tail = append(tail, v)
	if len(tail) > max {
		tail = tail[1:]
	}
	return tail
}

// nearestLevels derives intermediate S/R levels from the window extremes:
// the 5 deepest lows below the close (descending) and the 5 highest highs
// above it (ascending).
func nearestLevels(hilo *HiLo, close float64) (supports, resistances []float64) {
	lows := append([]float64(nil), hilo.Lows()...)
	highs := append([]float64(nil), hilo.Highs()...)
	sort.Float64s(lows)
	sort.Sort(sort.Reverse(sort.Float64Slice(highs)))
	if len(lows) > 5 {
		lows = lows[:5]
	}
	if len(highs) > 5 {
		highs = highs[:5]
	}

	for _, lo := range lows {
		if lo < close {
			supports = append(supports, lo)
		}
	}
	for _, hi := range highs {
		if hi > close {
			resistances = append(resistances, hi)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(supports)))
	sort.Float64s(resistances)
	return supports, resistances
}

// rateOfChange returns the percent move of the close over the last period bars.
func rateOfChange(bars []model.PriceBar, period int) model.Value {
	if len(bars) < period+1 {
		return model.NotComputable
	}
	cur := bars[len(bars)-1].Close
	past := bars[len(bars)-1-period].Close
	if past == 0 {
		return model.NotComputable
	}
	return model.Computed((cur - past) / past * 100)
}

// higherHighs reports whether the last n highs form a rising sequence,
// tolerating dips under 2%.
func higherHighs(bars []model.PriceBar, n int) bool {
	if len(bars) < n {
		return false
	}
	tail := bars[len(bars)-n:]
	for i := 1; i < len(tail); i++ {
		if tail[i].High < tail[i-1].High*0.98 {
			return false
		}
	}
	return true
}

