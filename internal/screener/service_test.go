package screener

import (
	"context"
	"errors"
	"testing"

	"swing-screenerv1/internal/model"
	"swing-screenerv1/internal/notification"
)

type stubRecorder struct {
	reports []*model.ScanReport
	err     error
}

func (r *stubRecorder) RecordScan(report *model.ScanReport) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.reports = append(r.reports, report)
	return int64(len(r.reports)), nil
}

func (r *stubRecorder) Close() error { return nil }

type stubChannel struct {
	alerts []notification.Alert
}

func (s *stubChannel) Send(_ context.Context, a notification.Alert) error {
	s.alerts = append(s.alerts, a)
	return nil
}

func (s *stubChannel) Name() string { return "stub" }

func softThresholds() Thresholds {
	cfg := DefaultThresholds()
	cfg.MinReturnPct = 1
	cfg.MinConfidencePct = 10
	cfg.MinRiskReward = 0
	return cfg
}

func TestScan_RecordsReport(t *testing.T) {
	rec := &stubRecorder{}
	svc, err := NewService(softThresholds(), ServiceDeps{
		Provider: testProvider(),
		Recorder: rec,
	}, 3)
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	report, err := svc.Scan(context.Background(), "test", universe())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(rec.reports) != 1 {
		t.Fatalf("recorded %d reports, want 1", len(rec.reports))
	}
	if rec.reports[0] != report {
		t.Error("recorder saw a different report than the caller")
	}
	if len(report.Funnel) == 0 {
		t.Error("report has no funnel stages")
	}
}

func TestScan_PersistFailureDoesNotFailScan(t *testing.T) {
	svc, err := NewService(softThresholds(), ServiceDeps{
		Provider: testProvider(),
		Recorder: &stubRecorder{err: errors.New("disk full")},
	}, 3)
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	if _, err := svc.Scan(context.Background(), "test", universe()); err != nil {
		t.Fatalf("scan failed on recorder error: %v", err)
	}
}

func TestScan_AlertsOnAggressivePicks(t *testing.T) {
	// Classification thresholds dropped to zero turn every survivor into a
	// tier-1 pick, which must produce exactly one alert.
	cfg := softThresholds()
	cfg.Tiers.Tier1Return = 0.5
	cfg.Tiers.Tier1Confidence = 5
	cfg.Tiers.Tier2Return = 0.1
	cfg.Tiers.Tier2Confidence = 1

	ch := &stubChannel{}
	svc, err := NewService(cfg, ServiceDeps{Provider: testProvider(), Notifier: ch}, 3)
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	report, err := svc.Scan(context.Background(), "test", universe())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	hasTier1 := false
	for _, o := range report.Opportunities {
		if o.Tier == model.Tier1Aggressive {
			hasTier1 = true
		}
	}
	if !hasTier1 {
		t.Fatal("fixture produced no tier-1 opportunities")
	}
	if len(ch.alerts) != 1 {
		t.Fatalf("alerts sent = %d, want 1", len(ch.alerts))
	}
}

func TestScan_NoAlertWithoutTier1(t *testing.T) {
	// Default tier gates are far above what the smooth fixtures project,
	// so everything lands in tier 3 and no alert goes out.
	ch := &stubChannel{}
	svc, err := NewService(softThresholds(), ServiceDeps{Provider: testProvider(), Notifier: ch}, 3)
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	if _, err := svc.Scan(context.Background(), "test", universe()); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(ch.alerts) != 0 {
		t.Fatalf("alerts sent = %d, want 0", len(ch.alerts))
	}
}

func TestScan_CancelledContextPropagates(t *testing.T) {
	svc, err := NewService(softThresholds(), ServiceDeps{Provider: testProvider()}, 3)
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Scan(ctx, "test", universe()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
