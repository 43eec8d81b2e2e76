package model

import (
	"context"
	"time"
)

// ── Port Interfaces ──
// These interfaces decouple the screening pipeline from concrete providers
// and storage implementations (HTTP vendor, Redis, SQLite).

// MarketDataProvider returns OHLCV history and quote data for a symbol.
// Implementations fail with an error wrapping ErrDataUnavailable when the
// symbol is invalid/delisted or the vendor is unreachable.
type MarketDataProvider interface {
	// History returns up to bars daily bars, ordered oldest→newest.
	History(ctx context.Context, symbol string, bars int) (*History, error)

	// Quote returns the latest quote including market cap.
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// QuoteCache is the freshness layer in front of the provider. A miss returns
// (nil, Quote{}, false, nil); cache errors are soft failures the caller logs
// and ignores.
type QuoteCache interface {
	Get(ctx context.Context, symbol string) (*History, Quote, bool, error)
	Set(ctx context.Context, symbol string, h *History, q Quote, ttl time.Duration) error
	Close() error
}

// ScanRecorder persists funnel reports and ranked opportunities.
type ScanRecorder interface {
	RecordScan(report *ScanReport) (scanID int64, err error)
	Close() error
}

// PositionStore reads and writes open positions and their monitor decisions.
type PositionStore interface {
	OpenPositions() ([]OpenPosition, error)
	SavePosition(p OpenPosition) error
	ClosePosition(symbol string, status PositionStatus) error
	RecordDecision(d PositionDecision) error
	Close() error
}
