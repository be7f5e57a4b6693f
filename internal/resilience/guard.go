package resilience

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// GuardConfig controls per-client retry behavior.
type GuardConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is the delay before the first retry. Default: 1s.
	BaseDelay time.Duration
	// MaxDelay caps the delay. Default: 30s.
	MaxDelay time.Duration
	// OnError is called after every failed attempt.
	OnError func(err error, clientID int64, willRetry bool)
}

// Outcome is the result of one guarded client run.
type Outcome struct {
	ClientID int64
	Success  bool
	Attempts int
	Retries  int
	Err      error
}

// Guard runs a client enrichment under the shared circuit breaker with
// deterministic exponential backoff between attempts.
type Guard struct {
	breaker *CircuitBreaker
	cfg     GuardConfig

	// sleep allows tests to skip real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGuard creates a guard bound to breaker.
func NewGuard(breaker *CircuitBreaker, cfg GuardConfig) *Guard {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	return &Guard{breaker: breaker, cfg: cfg, sleep: sleepCtx}
}

// Breaker returns the breaker shared by this guard.
func (g *Guard) Breaker() *CircuitBreaker {
	return g.breaker
}

// Run calls fn up to MaxRetries+1 times. The breaker is consulted before
// every attempt; an open breaker fails the run without calling fn.
func (g *Guard) Run(ctx context.Context, clientID int64, fn func(ctx context.Context) error) Outcome {
	log := zap.L().With(zap.Int64("client_id", clientID))
	out := Outcome{ClientID: clientID}

	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if err := g.breaker.Allow(); err != nil {
			out.Err = eris.Wrapf(err, "resilience: client %d rejected", clientID)
			log.Warn("circuit open, skipping client", zap.Int("attempt", attempt))
			return out
		}

		out.Attempts++
		err := fn(ctx)
		if err == nil {
			g.breaker.RecordSuccess()
			out.Success = true
			out.Retries = attempt
			out.Err = nil
			return out
		}
		out.Err = err
		out.Retries = attempt

		if ctx.Err() != nil {
			return out
		}
		g.breaker.RecordFailure()

		willRetry := attempt < g.cfg.MaxRetries
		if g.cfg.OnError != nil {
			g.cfg.OnError(err, clientID, willRetry)
		}
		if !willRetry {
			break
		}

		delay := Backoff(attempt, g.cfg.BaseDelay, g.cfg.MaxDelay)
		log.Debug("retrying client",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if sleepErr := g.sleep(ctx, delay); sleepErr != nil {
			return out
		}
	}

	return out
}
