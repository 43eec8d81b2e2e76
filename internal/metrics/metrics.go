// Package metrics exposes Prometheus metrics and a health endpoint for the
// screening services.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the screener and monitor.
type Metrics struct {
	// Scan pipeline
	ScansTotal          prometheus.Counter
	ScanDur             prometheus.Histogram
	StagePassed         *prometheus.CounterVec // labels: stage
	StageFailed         *prometheus.CounterVec // labels: stage
	StageDur            *prometheus.HistogramVec
	FunnelSurvivors     prometheus.Gauge         // opportunities out of the latest scan
	OpportunitiesByTier *prometheus.CounterVec   // labels: tier

	// Market data fetch
	ProviderRequestDur prometheus.Histogram
	FetchRetries       prometheus.Counter
	FetchFailures      prometheus.Counter
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter

	// Cache circuit breaker
	CacheBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	CacheBreakerTrips prometheus.Counter

	// Position monitor
	PositionChecksTotal prometheus.Counter
	PositionExits       *prometheus.CounterVec // labels: status
	SwapEvaluations     prometheus.Counter
	SwapSellSignals     prometheus.Counter

	// Persistence
	SQLiteCommitDur prometheus.Histogram

	// Alerts
	NotificationsTotal *prometheus.CounterVec // labels: channel
	NotificationErrors *prometheus.CounterVec
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "screener_scans_total",
			Help: "Total scan runs completed",
		}),
		ScanDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_scan_duration_seconds",
			Help:    "Wall-clock duration of a full scan run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		StagePassed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_stage_passed_total",
			Help: "Candidates passed per funnel stage",
		}, []string{"stage"}),
		StageFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_stage_failed_total",
			Help: "Candidates excluded per funnel stage",
		}, []string{"stage"}),
		StageDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "screener_stage_duration_seconds",
			Help:    "Per-stage wall-clock duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		FunnelSurvivors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "screener_funnel_survivors",
			Help: "Opportunities produced by the most recent scan",
		}),
		OpportunitiesByTier: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_opportunities_total",
			Help: "Ranked opportunities produced, by tier",
		}, []string{"tier"}),

		ProviderRequestDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_provider_request_duration_seconds",
			Help:    "Vendor history/quote request latency",
			Buckets: prometheus.DefBuckets,
		}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "screener_fetch_retries_total",
			Help: "Transient vendor failures retried",
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "screener_fetch_failures_total",
			Help: "Symbols excluded after retries were exhausted",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "screener_cache_hits_total",
			Help: "History/quote reads served from the cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "screener_cache_misses_total",
			Help: "History/quote reads that went to the vendor",
		}),

		CacheBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "screener_cache_circuit_breaker_state",
			Help: "Cache circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		CacheBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "screener_cache_circuit_breaker_trips_total",
			Help: "Times the cache circuit breaker tripped open",
		}),

		PositionChecksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_position_checks_total",
			Help: "Open-position evaluations performed",
		}),
		PositionExits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "monitor_position_exits_total",
			Help: "Exit decisions emitted, by status",
		}, []string{"status"}),
		SwapEvaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_swap_evaluations_total",
			Help: "Dividend-swap evaluations performed",
		}),
		SwapSellSignals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_swap_sell_signals_total",
			Help: "Swap evaluations that recommended selling",
		}),

		SQLiteCommitDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "screener_sqlite_commit_duration_seconds",
			Help:    "SQLite write latency",
			Buckets: prometheus.DefBuckets,
		}),

		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_notifications_total",
			Help: "Alerts dispatched, by channel",
		}, []string{"channel"}),
		NotificationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_notification_errors_total",
			Help: "Alert dispatch failures, by channel",
		}, []string{"channel"}),
	}

	prometheus.MustRegister(
		m.ScansTotal,
		m.ScanDur,
		m.StagePassed,
		m.StageFailed,
		m.StageDur,
		m.FunnelSurvivors,
		m.OpportunitiesByTier,
		m.ProviderRequestDur,
		m.FetchRetries,
		m.FetchFailures,
		m.CacheHits,
		m.CacheMisses,
		m.CacheBreakerState,
		m.CacheBreakerTrips,
		m.PositionChecksTotal,
		m.PositionExits,
		m.SwapEvaluations,
		m.SwapSellSignals,
		m.SQLiteCommitDur,
		m.NotificationsTotal,
		m.NotificationErrors,
	)

	return m
}

// HealthStatus represents service health for the /healthz probe.
type HealthStatus struct {
	mu sync.RWMutex

	RedisConnected bool      `json:"redis_connected"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	ProviderOK     bool      `json:"provider_ok"`
	LastScanAt     time.Time `json:"last_scan_at"`

	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

func (h *HealthStatus) SetProviderOK(v bool) {
	h.mu.Lock()
	h.ProviderOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastScanAt(t time.Time) {
	h.mu.Lock()
	h.LastScanAt = t
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.SQLiteOK || !h.ProviderOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	lastScan := ""
	if !h.LastScanAt.IsZero() {
		lastScan = h.LastScanAt.Format(time.RFC3339)
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		ProviderOK      bool    `json:"provider_ok"`
		LastScanAt      string  `json:"last_scan_at"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		ProviderOK:      h.ProviderOK,
		LastScanAt:      lastScan,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

// ObserveScan records funnel counters from a completed scan's stage results.
func (m *Metrics) ObserveScan(elapsed time.Duration) {
	m.ScansTotal.Inc()
	m.ScanDur.Observe(elapsed.Seconds())
}
