// Package resilience provides the circuit breaker and retry policies that
// guard per-client enrichment runs.
package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed is the normal operating state: calls flow through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects calls until the cooldown has elapsed.
	CircuitOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when a call is rejected because the circuit is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// CircuitBreakerConfig controls circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit. Default: 10.
	FailureThreshold int

	// Cooldown is measured from the most recent failure. Once it has elapsed
	// the breaker reports closed again. Default: 60s.
	Cooldown time.Duration

	// OnStateChange is called when the observed state flips.
	OnStateChange func(from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns the defaults used by the batch scheduler.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 10,
		Cooldown:         60 * time.Second,
	}
}

// CircuitBreaker counts consecutive failures shared by every enrichment of a
// process. There is no half-open probe state: after the cooldown the next
// call goes through and its outcome decides. A failure re-opens the circuit
// at once because the counter is still at or above the threshold; a success
// resets it.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	mu  sync.Mutex

	consecutiveFailures int
	lastFailureTime     time.Time
	observed            CircuitState

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given config.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 10
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	return &CircuitBreaker{
		cfg:      cfg,
		observed: CircuitClosed,
		nowFunc:  time.Now,
	}
}

// Allow reports whether a call may proceed. It returns ErrCircuitOpen while
// the circuit is open.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.stateLocked() == CircuitOpen {
		return ErrCircuitOpen
	}
	return nil
}

// RecordFailure counts a failed call and stamps its time.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures++
	cb.lastFailureTime = cb.nowFunc()
	cb.stateLocked()
}

// RecordSuccess resets the consecutive failure counter.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures = 0
	cb.stateLocked()
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stateLocked()
}

// IsOpen is shorthand for State() == CircuitOpen.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == CircuitOpen
}

// Reset forces the circuit back to closed state. Used for manual recovery.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures = 0
	cb.lastFailureTime = time.Time{}
	cb.stateLocked()
}

// Counters returns the current failure count and state for observability.
func (cb *CircuitBreaker) Counters() (consecutiveFailures int, state CircuitState) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.consecutiveFailures, cb.stateLocked()
}

// stateLocked derives the state from the counters and fires OnStateChange
// when it differs from the last observed one. Caller holds cb.mu.
func (cb *CircuitBreaker) stateLocked() CircuitState {
	state := CircuitClosed
	if cb.consecutiveFailures >= cb.cfg.FailureThreshold &&
		cb.nowFunc().Sub(cb.lastFailureTime) < cb.cfg.Cooldown {
		state = CircuitOpen
	}
	if state != cb.observed {
		from := cb.observed
		cb.observed = state
		if cb.cfg.OnStateChange != nil {
			cb.cfg.OnStateChange(from, state)
		}
	}
	return state
}
