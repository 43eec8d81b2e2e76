package indicator

import "swing-screenerv1/internal/model"

// HiLo tracks the rolling high and low of the last N bars. The window is
// small (20 bars) so a linear scan per read is cheaper than a deque.
type HiLo struct {
	period int
	highs  []float64
	lows   []float64
	idx    int
	count  int
}

// NewHiLo creates a rolling high/low tracker with the given period.
func NewHiLo(period int) *HiLo {
	return &HiLo{
		period: period,
		highs:  make([]float64, period),
		lows:   make([]float64, period),
	}
}

func (h *HiLo) Name() string { return "HILO" }

func (h *HiLo) Update(bar model.PriceBar) {
	h.highs[h.idx] = bar.High
	h.lows[h.idx] = bar.Low
	h.idx = (h.idx + 1) % h.period
	h.count++
}

// Value returns the rolling high (resistance side).
func (h *HiLo) Value() float64 { return h.High() }

func (h *HiLo) Ready() bool { return h.count >= h.period }

// High returns the highest high in the window.
func (h *HiLo) High() float64 {
	n := h.size()
	if n == 0 {
		return 0
	}
	max := h.highs[0]
	for i := 1; i < n; i++ {
		if h.highs[i] > max {
			max = h.highs[i]
		}
	}
	return max
}

// Low returns the lowest low in the window.
func (h *HiLo) Low() float64 {
	n := h.size()
	if n == 0 {
		return 0
	}
	min := h.lows[0]
	for i := 1; i < n; i++ {
		if h.lows[i] < min {
			min = h.lows[i]
		}
	}
	return min
}

// Highs returns the window's highs, newest last, as a copy.
func (h *HiLo) Highs() []float64 { return h.ordered(h.highs) }

// Lows returns the window's lows, newest last, as a copy.
func (h *HiLo) Lows() []float64 { return h.ordered(h.lows) }

func (h *HiLo) size() int {
	if h.count < h.period {
		return h.count
	}
	return h.period
}

func (h *HiLo) ordered(buf []float64) []float64 {
	n := h.size()
	out := make([]float64, 0, n)
	if h.count < h.period {
		return append(out, buf[:n]...)
	}
	out = append(out, buf[h.idx:]...)
	return append(out, buf[:h.idx]...)
}
