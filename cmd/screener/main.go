package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"swing-screenerv1/config"
	"swing-screenerv1/internal/logger"
	"swing-screenerv1/internal/marketdata"
	"swing-screenerv1/internal/markethours"
	"swing-screenerv1/internal/metrics"
	"swing-screenerv1/internal/model"
	"swing-screenerv1/internal/notification"
	"swing-screenerv1/internal/screener"
	redisstore "swing-screenerv1/internal/store/redis"
	sqlitestore "swing-screenerv1/internal/store/sqlite"
	"swing-screenerv1/internal/universe"
	"swing-screenerv1/pkg/quotes"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	godotenv.Load()
	logger.Init("screener", slog.LevelInfo)
	log.Println("[screener] starting...")

	cfg := config.Load()

	thresholds, err := screener.LoadThresholds(cfg.ThresholdsPath)
	if err != nil {
		log.Fatalf("[screener] thresholds: %v", err)
	}

	symbols, err := universe.Load(cfg.UniversePath)
	if err != nil {
		log.Fatalf("[screener] universe: %v", err)
	}
	log.Printf("[screener] universe %s: %d symbols", cfg.UniverseName, len(symbols))

	// ---- Setup metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Vendor session ----
	client := quotes.NewClient(quotes.Config{
		APIKey:     cfg.FeedAPIKey,
		ClientID:   cfg.FeedClientID,
		TOTPSecret: cfg.FeedTOTPSecret,
		RootURL:    cfg.FeedRootURL,
	})
	if err := client.Login(ctx, cfg.FeedPassword); err != nil {
		log.Fatalf("[screener] vendor login failed: %v", err)
	}
	health.SetProviderOK(true)

	// ---- Redis cache (optional: degrade to provider-only) ----
	var cache model.QuoteCache
	redisCache, err := redisstore.NewCache(redisstore.CacheConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Printf("[screener] WARNING: redis init failed: %v (continuing without cache)", err)
	} else {
		redisCache.Breaker().OnStateChange = func(from, to redisstore.State) {
			prom.CacheBreakerState.Set(float64(to))
			if to == redisstore.StateOpen {
				prom.CacheBreakerTrips.Inc()
			}
		}
		cache = redisCache
		defer redisCache.Close()
	}

	// ---- Caching fetcher ----
	fetcher, err := marketdata.NewFetcher(client, cache, marketdata.FetcherConfig{})
	if err != nil {
		log.Fatalf("[screener] fetcher: %v", err)
	}
	fetcher.OnCacheHit = func() { prom.CacheHits.Inc() }
	fetcher.OnCacheMiss = func() { prom.CacheMisses.Inc() }
	fetcher.OnRetry = func() { prom.FetchRetries.Inc() }
	fetcher.OnFetchFailed = func() { prom.FetchFailures.Inc() }
	fetcher.OnProviderDur = func(d time.Duration) { prom.ProviderRequestDur.Observe(d.Seconds()) }

	// ---- SQLite scan history ----
	os.MkdirAll("data", 0o755)
	store, err := sqlitestore.New(sqlitestore.StoreConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[screener] sqlite init failed: %v", err)
	}
	defer store.Close()

	if redisCache != nil {
		health.StartLivenessChecker(ctx, redisCache.Client(), store.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, store.DB(), 10*time.Second)
	}

	// ---- Alert channels ----
	notifier := buildNotifier(cfg, prom)

	svc, err := screener.NewService(thresholds, screener.ServiceDeps{
		Provider: fetcher,
		Recorder: store,
		Notifier: notifier,
		Prom:     prom,
		Health:   health,
	}, cfg.FetchWorkers)
	if err != nil {
		log.Fatalf("[screener] service: %v", err)
	}

	runScan := func() {
		report, err := svc.Scan(ctx, cfg.UniverseName, symbols)
		if err != nil {
			log.Printf("[screener] scan error: %v", err)
			return
		}
		printFunnel(report)
	}

	if cfg.ScanSchedule == "" {
		// One-shot mode: scan and exit.
		runScan()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		metricsSrv.Stop(shutdownCtx)
		client.Logout(context.Background())
		return
	}

	// ---- Scheduled mode ----
	c := cron.New(cron.WithLocation(markethours.Eastern))
	_, err = c.AddFunc(cfg.ScanSchedule, func() {
		if !markethours.IsTradingDay(time.Now()) {
			log.Printf("[screener] skipping scan: %s", markethours.StatusString(time.Now()))
			return
		}
		runScan()
	})
	if err != nil {
		log.Fatalf("[screener] bad SCAN_SCHEDULE %q: %v", cfg.ScanSchedule, err)
	}
	c.Start()
	log.Printf("[screener] scheduled: %q (ET). %s", cfg.ScanSchedule, markethours.StatusString(time.Now()))

	<-sigCh
	log.Println("[screener] shutdown signal received, cleaning up...")
	cancel()
	c.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)
	client.Logout(context.Background())
	log.Println("[screener] shutdown complete.")
}

// buildNotifier wires every configured alert channel behind one fan-out.
func buildNotifier(cfg *config.Config, prom *metrics.Metrics) notification.Notifier {
	channels := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		channels = append(channels, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		channels = append(channels, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	multi := notification.NewMulti(channels...)
	multi.OnSent = func(ch string) { prom.NotificationsTotal.WithLabelValues(ch).Inc() }
	multi.OnError = func(ch string) { prom.NotificationErrors.WithLabelValues(ch).Inc() }
	return multi
}

// printFunnel logs the stage-by-stage survival table for a finished scan.
func printFunnel(report *model.ScanReport) {
	for _, st := range report.Funnel {
		log.Printf("[screener] stage %2d %-12s %4d → %4d (%.0f%% pass)",
			st.StageIndex, st.Name, st.InputCount, st.PassedCount, st.PassRate*100)
	}
	for _, o := range report.Opportunities {
		log.Printf("[screener] %-22s %-6s entry $%.2f target $%.2f (+%.1f%%, conf %.0f%%, ~%dd) stop $%.2f shares %d",
			o.Tier, o.Symbol, o.EntryPrice, o.TargetPrice,
			o.Estimate.ReturnPct, o.Estimate.ConfidencePct, o.Estimate.DaysToTarget,
			o.StopPrice, o.Shares)
	}
	input := 0
	if len(report.Funnel) > 0 {
		input = report.Funnel[0].InputCount
	}
	log.Printf("[screener] scan done: %d in, %d opportunities, %v",
		input, len(report.Opportunities), report.Elapsed.Truncate(time.Millisecond))
}
