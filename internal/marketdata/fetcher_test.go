package marketdata

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"swing-screenerv1/internal/model"
)

type fakeProvider struct {
	hist      *model.History
	quote     model.Quote
	err       error
	failFirst int // fail this many calls before succeeding
	calls     int
}

func (p *fakeProvider) History(ctx context.Context, symbol string, bars int) (*model.History, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	if p.calls <= p.failFirst {
		return nil, fmt.Errorf("transient: attempt %d", p.calls)
	}
	return p.hist, nil
}

func (p *fakeProvider) Quote(ctx context.Context, symbol string) (model.Quote, error) {
	if p.err != nil {
		return model.Quote{}, p.err
	}
	return p.quote, nil
}

type fakeCache struct {
	hist   *model.History
	quote  model.Quote
	hit    bool
	getErr error
	sets   int
}

func (c *fakeCache) Get(ctx context.Context, symbol string) (*model.History, model.Quote, bool, error) {
	if c.getErr != nil {
		return nil, model.Quote{}, false, c.getErr
	}
	return c.hist, c.quote, c.hit, nil
}

func (c *fakeCache) Set(ctx context.Context, symbol string, h *model.History, q model.Quote, ttl time.Duration) error {
	c.hist, c.quote, c.hit = h, q, true
	c.sets++
	return nil
}

func (c *fakeCache) Close() error { return nil }

func bars(n int) *model.History {
	h := &model.History{Symbol: "TEST"}
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		h.Bars = append(h.Bars, model.PriceBar{Date: day.AddDate(0, 0, i), Open: 10, High: 11, Low: 9, Close: 10, Volume: 1000})
	}
	return h
}

func TestFetch_CacheHitSkipsProvider(t *testing.T) {
	provider := &fakeProvider{hist: bars(90)}
	cache := &fakeCache{hist: bars(90), quote: model.Quote{Symbol: "TEST", Price: 10}, hit: true}
	f, err := NewFetcher(provider, cache, FetcherConfig{})
	if err != nil {
		t.Fatal(err)
	}

	h, q, err := f.Fetch(context.Background(), "TEST", 90)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if h.Len() != 90 || q.Price != 10 {
		t.Errorf("got %d bars, price %.2f", h.Len(), q.Price)
	}
	if provider.calls != 0 {
		t.Errorf("provider called %d times on cache hit", provider.calls)
	}
}

func TestFetch_ShortCachedHistoryRefetches(t *testing.T) {
	provider := &fakeProvider{hist: bars(90), quote: model.Quote{Symbol: "TEST", Price: 12}}
	cache := &fakeCache{hist: bars(30), hit: true}
	f, _ := NewFetcher(provider, cache, FetcherConfig{})

	h, _, err := f.Fetch(context.Background(), "TEST", 90)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if h.Len() != 90 {
		t.Errorf("got %d bars, want refetched 90", h.Len())
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}
}

func TestFetch_MissPopulatesCache(t *testing.T) {
	provider := &fakeProvider{hist: bars(90), quote: model.Quote{Symbol: "TEST", Price: 12}}
	cache := &fakeCache{}
	f, _ := NewFetcher(provider, cache, FetcherConfig{})

	if _, _, err := f.Fetch(context.Background(), "TEST", 90); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if cache.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", cache.sets)
	}

	// Second fetch should be served from the populated cache.
	if _, _, err := f.Fetch(context.Background(), "TEST", 90); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1", provider.calls)
	}
}

func TestFetch_CacheErrorDegradesToProvider(t *testing.T) {
	provider := &fakeProvider{hist: bars(90), quote: model.Quote{Symbol: "TEST", Price: 12}}
	cache := &fakeCache{getErr: errors.New("connection refused")}
	f, _ := NewFetcher(provider, cache, FetcherConfig{})

	h, _, err := f.Fetch(context.Background(), "TEST", 90)
	if err != nil {
		t.Fatalf("fetch with broken cache: %v", err)
	}
	if h.Len() != 90 {
		t.Errorf("got %d bars", h.Len())
	}
}

func TestFetch_RetriesTransientErrors(t *testing.T) {
	provider := &fakeProvider{hist: bars(90), quote: model.Quote{Symbol: "TEST"}, failFirst: 2}
	var retries int
	f, _ := NewFetcher(provider, nil, FetcherConfig{MaxRetries: 3, RetryDelay: time.Millisecond})
	f.OnRetry = func() { retries++ }

	_, _, err := f.Fetch(context.Background(), "TEST", 90)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if provider.calls != 3 {
		t.Errorf("provider calls = %d, want 3", provider.calls)
	}
	if retries != 2 {
		t.Errorf("retry hook fired %d times, want 2", retries)
	}
}

func TestFetch_UnavailableSymbolDoesNotRetry(t *testing.T) {
	provider := &fakeProvider{err: fmt.Errorf("unknown symbol: %w", model.ErrDataUnavailable)}
	f, _ := NewFetcher(provider, nil, FetcherConfig{MaxRetries: 3, RetryDelay: time.Millisecond})

	_, _, err := f.Fetch(context.Background(), "GONE", 90)
	if !errors.Is(err, model.ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
	if provider.calls != 1 {
		t.Errorf("provider calls = %d, want 1 (no retry on unavailable)", provider.calls)
	}
}

func TestFetch_ExhaustedRetriesWrapUnavailable(t *testing.T) {
	provider := &fakeProvider{failFirst: 10, hist: bars(90)}
	f, _ := NewFetcher(provider, nil, FetcherConfig{MaxRetries: 2, RetryDelay: time.Millisecond})

	_, _, err := f.Fetch(context.Background(), "FLAKY", 90)
	if !errors.Is(err, model.ErrDataUnavailable) {
		t.Fatalf("err = %v, want wrapped ErrDataUnavailable", err)
	}
	if provider.calls != 2 {
		t.Errorf("provider calls = %d, want 2", provider.calls)
	}
}

func TestNewFetcher_NilProvider(t *testing.T) {
	if _, err := NewFetcher(nil, nil, FetcherConfig{}); err == nil {
		t.Error("nil provider accepted")
	}
}
