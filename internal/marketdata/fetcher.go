// Package marketdata layers caching and bounded retry on top of a raw
// market-data provider so the screening pipeline sees a single fetch call.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"swing-screenerv1/internal/model"
)

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 500 * time.Millisecond
	defaultCacheTTL   = 15 * time.Minute
)

// FetcherConfig configures the caching fetcher.
type FetcherConfig struct {
	MaxRetries int           // provider attempts per symbol (0 → default 3)
	RetryDelay time.Duration // base delay, doubled per attempt
	CacheTTL   time.Duration // freshness window for cached history+quote
}

func (c *FetcherConfig) applyDefaults() {
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}
}

// Fetcher resolves a symbol's history and quote, consulting the cache first
// and falling back to the provider with retry. Cache failures are soft: a
// broken cache degrades to provider-only operation.
type Fetcher struct {
	provider model.MarketDataProvider
	cache    model.QuoteCache // may be nil
	cfg      FetcherConfig

	// Optional metrics hooks
	OnCacheHit    func()
	OnCacheMiss   func()
	OnRetry       func()
	OnFetchFailed func()
	OnProviderDur func(d time.Duration)
}

// NewFetcher builds a Fetcher. cache may be nil to run uncached.
func NewFetcher(provider model.MarketDataProvider, cache model.QuoteCache, cfg FetcherConfig) (*Fetcher, error) {
	if provider == nil {
		return nil, errors.New("marketdata: nil provider")
	}
	cfg.applyDefaults()
	return &Fetcher{provider: provider, cache: cache, cfg: cfg}, nil
}

// Fetch returns history and quote for one symbol. Symbols the provider cannot
// serve after all retries fail with an error wrapping model.ErrDataUnavailable;
// histories shorter than bars are returned as-is for the caller to judge.
func (f *Fetcher) Fetch(ctx context.Context, symbol string, bars int) (*model.History, model.Quote, error) {
	if f.cache != nil {
		h, q, ok, err := f.cache.Get(ctx, symbol)
		if err != nil {
			log.Printf("[marketdata] cache get %s: %v", symbol, err)
		}
		if ok && h != nil && h.Len() >= bars {
			if f.OnCacheHit != nil {
				f.OnCacheHit()
			}
			return h, q, nil
		}
		if f.OnCacheMiss != nil {
			f.OnCacheMiss()
		}
	}

	h, q, err := f.fetchWithRetry(ctx, symbol, bars)
	if err != nil {
		if f.OnFetchFailed != nil {
			f.OnFetchFailed()
		}
		return nil, model.Quote{}, err
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, symbol, h, q, f.cfg.CacheTTL); err != nil {
			log.Printf("[marketdata] cache set %s: %v", symbol, err)
		}
	}
	return h, q, nil
}

// History implements model.MarketDataProvider on top of Fetch, so the
// Fetcher drops in wherever a raw provider is expected.
func (f *Fetcher) History(ctx context.Context, symbol string, bars int) (*model.History, error) {
	h, _, err := f.Fetch(ctx, symbol, bars)
	return h, err
}

// Quote implements model.MarketDataProvider. Served from the cache when a
// preceding History call populated it, otherwise straight from the provider.
func (f *Fetcher) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	if f.cache != nil {
		if _, q, ok, err := f.cache.Get(ctx, symbol); ok && err == nil {
			if f.OnCacheHit != nil {
				f.OnCacheHit()
			}
			return q, nil
		}
	}
	return f.provider.Quote(ctx, symbol)
}

var _ model.MarketDataProvider = (*Fetcher)(nil)

func (f *Fetcher) fetchWithRetry(ctx context.Context, symbol string, bars int) (*model.History, model.Quote, error) {
	var lastErr error
	delay := f.cfg.RetryDelay

	for attempt := 1; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			if f.OnRetry != nil {
				f.OnRetry()
			}
			select {
			case <-ctx.Done():
				return nil, model.Quote{}, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		start := time.Now()
		h, err := f.provider.History(ctx, symbol, bars)
		if err == nil {
			var q model.Quote
			q, err = f.provider.Quote(ctx, symbol)
			if err == nil {
				if f.OnProviderDur != nil {
					f.OnProviderDur(time.Since(start))
				}
				return h, q, nil
			}
		}
		lastErr = err

		// Unknown or delisted symbols will not heal on retry.
		if errors.Is(err, model.ErrDataUnavailable) {
			break
		}
		if ctx.Err() != nil {
			return nil, model.Quote{}, ctx.Err()
		}
		log.Printf("[marketdata] fetch %s attempt %d/%d: %v", symbol, attempt, f.cfg.MaxRetries, err)
	}

	return nil, model.Quote{}, fmt.Errorf("fetch %s: %w: %w", symbol, model.ErrDataUnavailable, lastErr)
}
