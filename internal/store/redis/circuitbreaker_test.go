package redis

import (
	"errors"
	"testing"
	"time"
)

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Hour)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: got %v, want the call's own error", i, err)
		}
	}
	if got := cb.CurrentState(); got != StateOpen {
		t.Fatalf("state = %v, want open", got)
	}

	// Inside the reset window fn must not even run.
	ran := false
	err := cb.Execute(func() error { ran = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("got %v, want ErrCircuitOpen", err)
	}
	if ran {
		t.Error("call executed through an open breaker")
	}
}

func TestBreaker_SuccessResetsTheCount(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Hour)
	boom := errors.New("boom")

	cb.Execute(func() error { return boom })
	cb.Execute(func() error { return nil })
	cb.Execute(func() error { return boom })

	if got := cb.CurrentState(); got != StateClosed {
		t.Errorf("state = %v, want closed (failures were not consecutive)", got)
	}
}

func TestBreaker_ProbeClosesAfterRecovery(t *testing.T) {
	cb := NewCircuitBreaker(1, 30*time.Millisecond)
	cb.Execute(func() error { return errors.New("boom") })
	if cb.CurrentState() != StateOpen {
		t.Fatal("breaker should be open")
	}

	time.Sleep(40 * time.Millisecond)
	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if got := cb.CurrentState(); got != StateClosed {
		t.Errorf("state = %v, want closed after a good probe", got)
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 30*time.Millisecond)
	boom := errors.New("boom")
	cb.Execute(func() error { return boom })

	time.Sleep(40 * time.Millisecond)
	cb.Execute(func() error { return boom })
	if got := cb.CurrentState(); got != StateOpen {
		t.Errorf("state = %v, want open after a failed probe", got)
	}
}
