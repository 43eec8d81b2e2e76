package indicator

import "swing-screenerv1/internal/model"

// MACD calculates Moving Average Convergence Divergence: fast EMA minus slow
// EMA as the line, an EMA of the line as the signal, line minus signal as the
// histogram. Standard parameters are (12, 26, 9).
type MACD struct {
	fast   *EMA
	slow   *EMA
	signal *EMA
}

// NewMACD creates a MACD indicator with the given fast/slow/signal periods.
func NewMACD(fast, slow, signal int) *MACD {
	return &MACD{
		fast:   NewEMA(fast),
		slow:   NewEMA(slow),
		signal: NewEMA(signal),
	}
}

func (m *MACD) Name() string { return "MACD" }

func (m *MACD) Update(bar model.PriceBar) {
	m.fast.push(bar.Close)
	m.slow.push(bar.Close)

	// The signal EMA only sees real line values, so its seed window starts
	// once the slow EMA is warm.
	if m.slow.Ready() {
		m.signal.push(m.fast.Value() - m.slow.Value())
	}
}

// Value returns the MACD line (fast EMA − slow EMA).
func (m *MACD) Value() float64 {
	return m.fast.Value() - m.slow.Value()
}

// Ready reports whether the line is computable.
func (m *MACD) Ready() bool { return m.slow.Ready() }

// Signal returns the signal line value.
func (m *MACD) Signal() float64 { return m.signal.Value() }

// SignalReady reports whether the signal line is computable.
func (m *MACD) SignalReady() bool { return m.signal.Ready() }

// Hist returns the histogram (line − signal).
func (m *MACD) Hist() float64 {
	return m.Value() - m.signal.Value()
}
