package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDoVal_RetriesTransientUntilSuccess(t *testing.T) {
	var calls int
	_, err := DoVal(context.Background(), fastRetry(3), func(_ context.Context) (struct{}, error) {
		calls++
		if calls < 3 {
			return struct{}{}, NewTransientError(errors.New("overloaded"), 529)
		}
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoVal_StopsAfterMaxAttempts(t *testing.T) {
	var calls int
	var retried []int
	cfg := fastRetry(3)
	cfg.OnRetry = func(attempt int, _ error) { retried = append(retried, attempt) }

	_, err := DoVal(context.Background(), cfg, func(_ context.Context) (struct{}, error) {
		calls++
		return struct{}{}, NewTransientError(errors.New("rate limited"), 429)
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Errorf("expected OnRetry attempts [1 2], got %v", retried)
	}
}

func TestDoVal_PermanentErrorNotRetried(t *testing.T) {
	var calls int
	_, err := DoVal(context.Background(), fastRetry(5), func(_ context.Context) (struct{}, error) {
		calls++
		return struct{}{}, errors.New("invalid request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_ContextCancelledStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastRetry(5)
	cfg.InitialBackoff = 50 * time.Millisecond

	var calls int
	_, err := DoVal(ctx, cfg, func(_ context.Context) (struct{}, error) {
		calls++
		cancel()
		return struct{}{}, NewTransientError(errors.New("fail"), 500)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call after cancel, got %d", calls)
	}
}

func TestDoVal_ReturnsValue(t *testing.T) {
	var calls int
	val, err := DoVal(context.Background(), fastRetry(3), func(_ context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", NewTransientError(errors.New("fail"), 502)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "ok" {
		t.Errorf("expected %q, got %q", "ok", val)
	}

	zero, err := DoVal(context.Background(), fastRetry(1), func(_ context.Context) (int, error) {
		return 7, errors.New("boom")
	})
	if err == nil || zero != 0 {
		t.Errorf("expected zero value and error, got %d, %v", zero, err)
	}
}

func TestBackoff_DoublesAndCaps(t *testing.T) {
	base := time.Second
	maxDelay := 30 * time.Second
	expected := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for attempt, want := range expected {
		if got := Backoff(attempt, base, maxDelay); got != want {
			t.Errorf("attempt %d: expected %v, got %v", attempt, want, got)
		}
	}
}

func TestComputeBackoff_JitterWithinRange(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		JitterFraction: 0.5,
	})
	for i := 0; i < 50; i++ {
		d := computeBackoff(0, cfg)
		if d < 500*time.Millisecond || d > 1500*time.Millisecond {
			t.Errorf("delay %v outside [500ms, 1500ms]", d)
		}
	}
}

func TestRetryLogger(t *testing.T) {
	t.Parallel()
	RetryLogger("anthropic", "create_message")(1, errors.New("test error"))
}
