package model

import "time"

// Tick is a single last-traded-price update from the live quote stream.
type Tick struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Volume int64     `json:"volume"`
	TS     time.Time `json:"ts"`
}
