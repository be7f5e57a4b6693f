package enrich

import (
	"context"
	"errors"

	"github.com/sells-group/market-intel/internal/generate"
	"github.com/sells-group/market-intel/internal/resilience"
)

var (
	// ErrClientNotFound is returned when the client does not exist in the project.
	ErrClientNotFound = errors.New("enrich: client not found")
	// ErrPersistence marks a failure while saving enrichment results.
	ErrPersistence = errors.New("enrich: persistence failed")
)

// persistError wraps a store failure so it matches ErrPersistence while
// keeping the original cause in the chain.
type persistError struct {
	op  string
	err error
}

func (e *persistError) Error() string { return "enrich: " + e.op + ": " + e.err.Error() }

func (e *persistError) Unwrap() error { return e.err }

func (e *persistError) Is(target error) bool { return target == ErrPersistence }

func persistFailed(op string, err error) error {
	return &persistError{op: op, err: err}
}

// UserMessage maps an enrichment error to a message safe to show to end
// users. Internal details stay in logs.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "enrichment paused: the generation service is failing, try again in a minute"
	case errors.Is(err, ErrClientNotFound):
		return "client not found in this project"
	case errors.Is(err, context.Canceled):
		return "enrichment cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "enrichment timed out"
	case errors.Is(err, ErrPersistence):
		return "could not save enrichment results"
	case errors.Is(err, generate.ErrMalformedResponse), errors.Is(err, generate.ErrInvalidStructure):
		return "the generation service returned an unusable answer"
	case resilience.IsTransient(err):
		return "the generation service is temporarily unavailable"
	default:
		return "enrichment failed"
	}
}
