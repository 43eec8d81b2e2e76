package screener

import (
	"context"
	"log/slog"
	"time"

	"swing-screenerv1/internal/logger"
	"swing-screenerv1/internal/metrics"
	"swing-screenerv1/internal/model"
	"swing-screenerv1/internal/notification"
)

// ServiceDeps are the optional collaborators around the pipeline. Any nil
// dependency is skipped: a Service with only a provider still scans.
type ServiceDeps struct {
	Provider model.MarketDataProvider
	Recorder model.ScanRecorder
	Notifier notification.Notifier
	Prom     *metrics.Metrics
	Health   *metrics.HealthStatus
}

// Service runs scans end to end: pipeline, metrics, persistence, alerts.
type Service struct {
	pipeline *Pipeline
	recorder model.ScanRecorder
	notifier notification.Notifier
	prom     *metrics.Metrics
	health   *metrics.HealthStatus
}

// NewService wires a scan service. Provider is required.
func NewService(cfg Thresholds, deps ServiceDeps, fetchWorkers int) (*Service, error) {
	p, err := NewPipeline(cfg, deps.Provider, fetchWorkers)
	if err != nil {
		return nil, err
	}
	return &Service{
		pipeline: p,
		recorder: deps.Recorder,
		notifier: deps.Notifier,
		prom:     deps.Prom,
		health:   deps.Health,
	}, nil
}

// Scan runs one full funnel over the universe, then records, counts and
// alerts on the result. Persistence and alert failures are logged, not
// returned: a finished scan report always reaches the caller.
func (s *Service) Scan(ctx context.Context, universeName string, symbols []string) (*model.ScanReport, error) {
	runID := logger.GenerateRunID(universeName, time.Now())
	ctx = logger.WithRunID(ctx, runID)

	slog.Info("scan started",
		append([]any{slog.String("universe", universeName), slog.Int("symbols", len(symbols))},
			logger.LogWithRun(ctx)...)...)

	report, err := s.pipeline.Run(ctx, universeName, symbols)
	if err != nil {
		slog.Error("scan aborted", append([]any{slog.Any("err", err)}, logger.LogWithRun(ctx)...)...)
		return report, err
	}

	s.observe(report)
	s.persist(ctx, report)
	s.alert(ctx, report)

	slog.Info("scan finished",
		append([]any{
			slog.String("universe", universeName),
			slog.Int("opportunities", len(report.Opportunities)),
			slog.Duration("elapsed", report.Elapsed),
		}, logger.LogWithRun(ctx)...)...)

	return report, nil
}

func (s *Service) observe(report *model.ScanReport) {
	if s.health != nil {
		s.health.SetLastScanAt(time.Now())
	}
	if s.prom == nil {
		return
	}
	s.prom.ObserveScan(report.Elapsed)
	for _, st := range report.Funnel {
		s.prom.StagePassed.WithLabelValues(st.Name).Add(float64(st.PassedCount))
		s.prom.StageFailed.WithLabelValues(st.Name).Add(float64(st.FailedCount))
		s.prom.StageDur.WithLabelValues(st.Name).Observe(st.Elapsed.Seconds())
	}
	s.prom.FunnelSurvivors.Set(float64(len(report.Opportunities)))
	for _, opp := range report.Opportunities {
		s.prom.OpportunitiesByTier.WithLabelValues(opp.Tier.String()).Inc()
	}
}

func (s *Service) persist(ctx context.Context, report *model.ScanReport) {
	if s.recorder == nil {
		return
	}
	start := time.Now()
	scanID, err := s.recorder.RecordScan(report)
	if err != nil {
		slog.Error("scan persist failed", append([]any{slog.Any("err", err)}, logger.LogWithRun(ctx)...)...)
		return
	}
	if s.prom != nil {
		s.prom.SQLiteCommitDur.Observe(time.Since(start).Seconds())
	}
	slog.Debug("scan persisted", append([]any{slog.Int64("scan_id", scanID)}, logger.LogWithRun(ctx)...)...)
}

func (s *Service) alert(ctx context.Context, report *model.ScanReport) {
	if s.notifier == nil {
		return
	}
	a, ok := notification.OpportunityAlert(report.Universe, report.Opportunities)
	if !ok {
		return
	}
	if err := s.notifier.Send(ctx, a); err != nil {
		slog.Error("scan alert failed", append([]any{slog.Any("err", err)}, logger.LogWithRun(ctx)...)...)
	}
}
