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

	"swing-screenerv1/config"
	"swing-screenerv1/internal/logger"
	"swing-screenerv1/internal/markethours"
	"swing-screenerv1/internal/metrics"
	"swing-screenerv1/internal/model"
	"swing-screenerv1/internal/notification"
	"swing-screenerv1/internal/position"
	"swing-screenerv1/internal/ringbuf"
	"swing-screenerv1/internal/screener"
	sqlitestore "swing-screenerv1/internal/store/sqlite"
	"swing-screenerv1/internal/swap"
	"swing-screenerv1/pkg/quotes"
)

// monitor watches open swing positions for exit conditions and advises on
// dividend-position swaps, on a fixed cadence during market hours. With
// STREAM_MODE=true, exits trigger off live ticks instead of polled quotes.
func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	godotenv.Load()
	logger.Init("monitor", slog.LevelInfo)
	log.Println("[monitor] starting...")

	cfg := config.Load()

	thresholds, err := screener.LoadThresholds(cfg.ThresholdsPath)
	if err != nil {
		log.Fatalf("[monitor] thresholds: %v", err)
	}

	holdings, err := swap.LoadHoldings(cfg.HoldingsPath)
	if err != nil {
		log.Fatalf("[monitor] holdings: %v", err)
	}
	log.Printf("[monitor] %d income holding(s) under advisement", len(holdings))

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
		log.Fatalf("[monitor] vendor login failed: %v", err)
	}
	health.SetProviderOK(true)

	// ---- Position store ----
	os.MkdirAll("data", 0o755)
	store, err := sqlitestore.New(sqlitestore.StoreConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[monitor] sqlite init failed: %v", err)
	}
	defer store.Close()
	health.StartLivenessChecker(ctx, nil, store.DB(), 10*time.Second)

	notifier := buildNotifier(cfg, prom)

	m := &monitor{
		client:     client,
		store:      store,
		notifier:   notifier,
		prom:       prom,
		holdings:   holdings,
		swapParams: thresholds.Swap,
	}

	if cfg.StreamMode {
		go m.runStream(ctx, cfg)
	}

	// ---- Polling loop (also drives time-based exits in stream mode) ----
	ticker := time.NewTicker(cfg.MonitorInterval)
	defer ticker.Stop()

	log.Printf("[monitor] checking every %v during market hours. %s",
		cfg.MonitorInterval, markethours.StatusString(time.Now()))
	m.checkAll(ctx)

	for {
		select {
		case <-sigCh:
			log.Println("[monitor] shutdown signal received, cleaning up...")
			cancel()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			metricsSrv.Stop(shutdownCtx)
			shutdownCancel()
			client.Logout(context.Background())
			log.Println("[monitor] shutdown complete.")
			return
		case <-ticker.C:
			if !markethours.IsMarketOpen(time.Now()) {
				continue
			}
			m.checkAll(ctx)
		}
	}
}

type monitor struct {
	client     *quotes.Client
	store      *sqlitestore.Store
	notifier   notification.Notifier
	prom       *metrics.Metrics
	holdings   []swap.Holding
	swapParams swap.Params
}

// checkAll runs one full pass: every open position, then the swap advisor.
func (m *monitor) checkAll(ctx context.Context) {
	positions, err := m.store.OpenPositions()
	if err != nil {
		log.Printf("[monitor] load positions: %v", err)
		return
	}

	for _, pos := range positions {
		q, err := m.client.Quote(ctx, pos.Symbol)
		if err != nil {
			log.Printf("[monitor] quote %s: %v", pos.Symbol, err)
			continue
		}
		m.checkOne(ctx, pos, q.Price)
	}

	m.adviseSwaps(ctx)
}

// checkOne evaluates a single position against one price and acts on the
// verdict: record, close if exiting, alert.
func (m *monitor) checkOne(ctx context.Context, pos model.OpenPosition, price float64) {
	d := position.Check(pos, price, time.Now().UTC())
	m.prom.PositionChecksTotal.Inc()

	if err := m.store.RecordDecision(d); err != nil {
		log.Printf("[monitor] record decision %s: %v", pos.Symbol, err)
	}

	if !d.Status.Exit() {
		return
	}

	log.Printf("[monitor] %s: %s at $%.2f (%+.1f%%, day %d)",
		pos.Symbol, d.Status, d.CurrentPrice, d.CurrentPnLPct, d.DaysHeld)
	m.prom.PositionExits.WithLabelValues(string(d.Status)).Inc()

	if err := m.store.ClosePosition(pos.Symbol, d.Status); err != nil {
		log.Printf("[monitor] close position %s: %v", pos.Symbol, err)
	}
	if alert, ok := notification.ExitAlert(pos, d); ok {
		if err := m.notifier.Send(ctx, alert); err != nil {
			log.Printf("[monitor] exit alert %s: %v", pos.Symbol, err)
		}
	}
}

// adviseSwaps compares each income holding against the best candidate from
// the latest scan and alerts when liquidating nets out ahead.
func (m *monitor) adviseSwaps(ctx context.Context) {
	if len(m.holdings) == 0 {
		return
	}

	opps, err := m.store.LatestOpportunities()
	if err != nil {
		log.Printf("[monitor] latest opportunities: %v", err)
		return
	}
	if len(opps) == 0 {
		return
	}
	best := opps[0]

	for _, h := range m.holdings {
		q, err := m.client.Quote(ctx, h.Symbol)
		if err != nil {
			log.Printf("[monitor] quote %s: %v", h.Symbol, err)
			continue
		}

		decision := swap.Evaluate(model.SwapInputs{
			Shares:             h.Shares,
			AvgCost:            h.AvgCost,
			CurrentPrice:       q.Price,
			MonthlyDividend:    h.MonthlyDividend,
			SwingReturnPct:     best.ReturnPct,
			SwingConfidencePct: best.ConfidencePct,
		}, m.swapParams)
		m.prom.SwapEvaluations.Inc()

		log.Printf("[monitor] swap %s vs %s: zone=%s dev=%+.1f%% sell=%v (%s)",
			h.Symbol, best.Symbol, decision.BuyZone, decision.DeviationPct, decision.ShouldSell, decision.Reason)

		if !decision.ShouldSell {
			continue
		}
		m.prom.SwapSellSignals.Inc()
		if alert, ok := notification.SwapAlert(h.Symbol, best.Symbol, decision); ok {
			if err := m.notifier.Send(ctx, alert); err != nil {
				log.Printf("[monitor] swap alert %s: %v", h.Symbol, err)
			}
		}
	}
}

// runStream consumes live ticks through a ring buffer and re-checks a
// position the moment its price moves, instead of waiting for the next poll.
func (m *monitor) runStream(ctx context.Context, cfg *config.Config) {
	positions, err := m.store.OpenPositions()
	if err != nil {
		log.Printf("[monitor] stream: load positions: %v", err)
		return
	}
	if len(positions) == 0 {
		log.Println("[monitor] stream: no open positions to subscribe")
		return
	}
	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}

	ring := ringbuf.New(4096)

	stream, err := quotes.NewStream(quotes.StreamConfig{
		URL:       cfg.FeedStreamURL,
		APIKey:    cfg.FeedAPIKey,
		ClientID:  cfg.FeedClientID,
		FeedToken: m.client.FeedToken(),
	})
	if err != nil {
		log.Printf("[monitor] stream init: %v", err)
		return
	}
	// Overflowed ticks are fine to drop: the poll loop is the backstop.
	stream.OnTick = func(t model.Tick) { ring.Push(t) }
	stream.OnError = func(err error) { log.Printf("[monitor] stream: %v", err) }

	if err := stream.Connect(); err != nil {
		log.Printf("[monitor] stream connect: %v", err)
		return
	}
	defer stream.Close()
	if err := stream.Subscribe(symbols); err != nil {
		log.Printf("[monitor] stream subscribe: %v", err)
		return
	}
	log.Printf("[monitor] streaming ticks for %d position(s)", len(symbols))

	bySymbol := make(map[string]model.OpenPosition, len(positions))
	for _, p := range positions {
		bySymbol[p.Symbol] = p
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		tick, ok := ring.Pop()
		if !ok {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		pos, watched := bySymbol[tick.Symbol]
		if !watched {
			continue
		}
		m.checkOne(ctx, pos, tick.Price)

		// Drop exited positions from the watch set.
		if d := position.Check(pos, tick.Price, time.Now().UTC()); d.Status.Exit() {
			delete(bySymbol, tick.Symbol)
		}
	}
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
