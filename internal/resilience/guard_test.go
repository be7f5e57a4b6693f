package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(cfg GuardConfig, breaker *CircuitBreaker) (*Guard, *[]time.Duration) {
	var slept []time.Duration
	g := NewGuard(breaker, cfg)
	g.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return g, &slept
}

func TestGuard_SucceedsFirstAttempt(t *testing.T) {
	g, slept := newTestGuard(GuardConfig{MaxRetries: 3}, NewCircuitBreaker(DefaultCircuitBreakerConfig()))

	out := g.Run(context.Background(), 7, func(_ context.Context) error { return nil })

	assert.True(t, out.Success)
	assert.Equal(t, int64(7), out.ClientID)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 0, out.Retries)
	assert.Empty(t, *slept)
}

func TestGuard_RetriesWithExponentialBackoff(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	var notified []bool
	g, slept := newTestGuard(GuardConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		OnError: func(_ error, _ int64, willRetry bool) {
			notified = append(notified, willRetry)
		},
	}, cb)

	calls := 0
	out := g.Run(context.Background(), 1, func(_ context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("persist failed")
		}
		return nil
	})

	require.True(t, out.Success)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, out.Retries)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
	assert.Equal(t, []bool{true, true}, notified)

	failures, _ := cb.Counters()
	assert.Equal(t, 0, failures, "success resets the breaker")
}

func TestGuard_ExhaustsRetries(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())
	var notified []bool
	g, slept := newTestGuard(GuardConfig{
		MaxRetries: 2,
		OnError: func(_ error, _ int64, willRetry bool) {
			notified = append(notified, willRetry)
		},
	}, cb)

	calls := 0
	out := g.Run(context.Background(), 1, func(_ context.Context) error {
		calls++
		return errors.New("persist failed")
	})

	assert.False(t, out.Success)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 2, out.Retries)
	assert.EqualError(t, out.Err, "persist failed")
	assert.Len(t, *slept, 2)
	assert.Equal(t, []bool{true, true, false}, notified)

	failures, _ := cb.Counters()
	assert.Equal(t, 3, failures)
}

func TestGuard_OpenBreakerRejectsWithoutCalling(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 10, Cooldown: time.Minute})
	g, _ := newTestGuard(GuardConfig{MaxRetries: 0}, cb)

	failing := func(_ context.Context) error { return errors.New("down") }
	for i := int64(1); i <= 10; i++ {
		out := g.Run(context.Background(), i, failing)
		require.False(t, out.Success)
		require.Equal(t, 1, out.Attempts)
	}

	called := false
	out := g.Run(context.Background(), 11, func(_ context.Context) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.False(t, out.Success)
	assert.Equal(t, 0, out.Attempts)
	assert.True(t, errors.Is(out.Err, ErrCircuitOpen))
}

func TestGuard_BreakerOpensMidRetry(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, Cooldown: time.Minute})
	g, _ := newTestGuard(GuardConfig{MaxRetries: 5}, cb)

	calls := 0
	out := g.Run(context.Background(), 1, func(_ context.Context) error {
		calls++
		return errors.New("down")
	})

	assert.Equal(t, 2, calls)
	assert.False(t, out.Success)
	assert.True(t, errors.Is(out.Err, ErrCircuitOpen))
}

func TestGuard_ContextCancelledDuringSleep(t *testing.T) {
	g := NewGuard(NewCircuitBreaker(DefaultCircuitBreakerConfig()), GuardConfig{MaxRetries: 3, BaseDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan Outcome, 1)
	go func() {
		done <- g.Run(ctx, 1, func(_ context.Context) error {
			calls++
			return errors.New("fail")
		})
	}()
	cancel()

	select {
	case out := <-done:
		assert.False(t, out.Success)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("guard did not return after cancel")
	}
}
