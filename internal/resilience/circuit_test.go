package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestBreaker(threshold int, cooldown time.Duration) (*CircuitBreaker, *time.Time) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: threshold, Cooldown: cooldown})
	cb.nowFunc = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreaker_DefaultsClosed(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed state, got %s", cb.State())
	}
	if cb.cfg.FailureThreshold != 10 {
		t.Errorf("expected default threshold 10, got %d", cb.cfg.FailureThreshold)
	}
	if cb.cfg.Cooldown != 60*time.Second {
		t.Errorf("expected default cooldown 60s, got %s", cb.cfg.Cooldown)
	}
	if err := cb.Allow(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCircuitBreaker_OpensAtExactlyThreshold(t *testing.T) {
	cb, _ := newTestBreaker(10, time.Minute)

	for i := 0; i < 9; i++ {
		cb.RecordFailure()
	}
	if cb.State() != CircuitClosed {
		t.Fatalf("expected closed after 9 failures, got %s", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open after 10 failures, got %s", cb.State())
	}
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsCounter(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	failures, state := cb.Counters()
	if failures != 2 {
		t.Errorf("expected 2 consecutive failures, got %d", failures)
	}
	if state != CircuitClosed {
		t.Errorf("expected closed state, got %s", state)
	}

	cb.RecordSuccess()
	failures, _ = cb.Counters()
	if failures != 0 {
		t.Errorf("expected counter reset, got %d", failures)
	}

	// Two more failures stay under the threshold again.
	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed state, got %s", cb.State())
	}
}

func TestCircuitBreaker_ClosesAfterCooldown(t *testing.T) {
	cb, now := newTestBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	*now = now.Add(59 * time.Second)
	if cb.State() != CircuitOpen {
		t.Errorf("expected open before cooldown, got %s", cb.State())
	}

	*now = now.Add(time.Second)
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed after cooldown, got %s", cb.State())
	}
	if err := cb.Allow(); err != nil {
		t.Errorf("expected call allowed after cooldown, got %v", err)
	}
}

func TestCircuitBreaker_FailureAfterCooldownReopens(t *testing.T) {
	cb, now := newTestBreaker(3, time.Minute)
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	*now = now.Add(2 * time.Minute)
	if cb.State() != CircuitClosed {
		t.Fatalf("expected closed after cooldown, got %s", cb.State())
	}

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Errorf("expected a failure after cooldown to reopen, got %s", cb.State())
	}
}

func TestCircuitBreaker_SuccessAfterCooldownStaysClosed(t *testing.T) {
	cb, now := newTestBreaker(3, time.Minute)
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	*now = now.Add(2 * time.Minute)

	cb.RecordSuccess()
	cb.RecordFailure()
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", cb.State())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		Cooldown:         time.Minute,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	cb.nowFunc = func() time.Time { return now }

	cb.RecordFailure()
	cb.RecordFailure()
	now = now.Add(time.Minute)
	_ = cb.State()

	if len(transitions) != 2 {
		t.Fatalf("expected 2 transitions, got %d: %v", len(transitions), transitions)
	}
	if transitions[0] != "closed->open" {
		t.Errorf("expected closed->open, got %s", transitions[0])
	}
	if transitions[1] != "open->closed" {
		t.Errorf("expected open->closed, got %s", transitions[1])
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Hour)
	cb.RecordFailure()
	if !cb.IsOpen() {
		t.Fatal("expected open")
	}

	cb.Reset()
	failures, state := cb.Counters()
	if failures != 0 || state != CircuitClosed {
		t.Errorf("expected reset to closed/0, got %s/%d", state, failures)
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1000, Cooldown: time.Minute})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = cb.Allow()
			if n%2 == 0 {
				cb.RecordFailure()
			} else {
				_ = cb.State()
			}
		}(i)
	}
	wg.Wait()

	failures, _ := cb.Counters()
	if failures != 50 {
		t.Errorf("expected 50 failures, got %d", failures)
	}
}

func TestCircuitState_String(t *testing.T) {
	tests := []struct {
		state CircuitState
		want  string
	}{
		{CircuitClosed, "closed"},
		{CircuitOpen, "open"},
		{CircuitState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("CircuitState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
