// Package redis implements the freshness cache in front of the market data
// vendor: OHLCV histories and quotes under TTL keys, guarded by a circuit
// breaker so a Redis outage degrades to cache misses instead of failing
// the scan.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"swing-screenerv1/internal/model"
)

const (
	histKeyPrefix  = "hist:"
	quoteKeyPrefix = "quote:"

	defaultMaxFailures  = 5
	defaultResetTimeout = 10 * time.Second
)

// CacheConfig configures the Redis cache.
type CacheConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int

	// Circuit breaker tuning; zero values take the defaults.
	MaxFailures  int
	ResetTimeout time.Duration
}

// Cache stores per-symbol history and quote snapshots with a TTL. It
// implements the pipeline's quote-cache port; every error path is soft —
// a failed read is a miss, a failed write is dropped.
type Cache struct {
	client  *goredis.Client
	breaker *CircuitBreaker
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// Breaker exposes the circuit breaker for metrics wiring.
func (c *Cache) Breaker() *CircuitBreaker { return c.breaker }

// NewCache creates a Cache and pings the server.
func NewCache(cfg CacheConfig) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	maxFailures := cfg.MaxFailures
	if maxFailures <= 0 {
		maxFailures = defaultMaxFailures
	}
	resetTimeout := cfg.ResetTimeout
	if resetTimeout <= 0 {
		resetTimeout = defaultResetTimeout
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Cache{
		client:  client,
		breaker: NewCircuitBreaker(maxFailures, resetTimeout),
	}, nil
}

// Get returns the cached history and quote for a symbol. A miss — absent
// key, expired TTL, open breaker or undecodable payload — returns ok=false
// with a nil error; the caller falls through to the vendor.
func (c *Cache) Get(ctx context.Context, symbol string) (*model.History, model.Quote, bool, error) {
	var vals []interface{}
	err := c.breaker.Execute(func() error {
		var mgetErr error
		vals, mgetErr = c.client.MGet(ctx, histKeyPrefix+symbol, quoteKeyPrefix+symbol).Result()
		return mgetErr
	})
	if err != nil {
		if err == ErrCircuitOpen {
			return nil, model.Quote{}, false, nil
		}
		return nil, model.Quote{}, false, fmt.Errorf("cache get %s: %w", symbol, err)
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return nil, model.Quote{}, false, nil
	}

	histRaw, ok1 := vals[0].(string)
	quoteRaw, ok2 := vals[1].(string)
	if !ok1 || !ok2 {
		return nil, model.Quote{}, false, nil
	}

	var h model.History
	if err := json.Unmarshal([]byte(histRaw), &h); err != nil {
		return nil, model.Quote{}, false, nil
	}
	var q model.Quote
	if err := json.Unmarshal([]byte(quoteRaw), &q); err != nil {
		return nil, model.Quote{}, false, nil
	}
	return &h, q, true, nil
}

// Set stores the history and quote under the freshness TTL.
func (c *Cache) Set(ctx context.Context, symbol string, h *model.History, q model.Quote, ttl time.Duration) error {
	histData := h.JSON()
	quoteData, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("cache encode quote %s: %w", symbol, err)
	}

	return c.breaker.Execute(func() error {
		pipe := c.client.Pipeline()
		pipe.Set(ctx, histKeyPrefix+symbol, histData, ttl)
		pipe.Set(ctx, quoteKeyPrefix+symbol, quoteData, ttl)
		_, execErr := pipe.Exec(ctx)
		return execErr
	})
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
