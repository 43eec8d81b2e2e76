package model

import (
	"encoding/json"
	"time"
)

// PriceBar represents one daily OHLCV bar for a single symbol.
// Bars are ordered oldest→newest and treated as immutable once fetched.
type PriceBar struct {
	Date   time.Time `json:"date"` // session date (UTC, midnight-aligned)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// History is an ordered PriceBar sequence for one symbol.
type History struct {
	Symbol string     `json:"symbol"`
	Bars   []PriceBar `json:"bars"`
}

// Last returns the newest bar. Callers must check Len() > 0 first.
func (h *History) Last() PriceBar {
	return h.Bars[len(h.Bars)-1]
}

// Len returns the number of bars.
func (h *History) Len() int { return len(h.Bars) }

// JSON returns the JSON-encoded history (ignoring errors for cache-path usage).
func (h *History) JSON() []byte {
	b, _ := json.Marshal(h)
	return b
}

// Quote is a point-in-time snapshot of a symbol from the data provider.
type Quote struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Volume    int64   `json:"volume"`
	MarketCap float64 `json:"market_cap"`
}
