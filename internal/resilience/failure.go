package resilience

import (
	"errors"
	"time"
)

// Error type labels attached to failure records.
const (
	ErrorTypeTransient   = "transient"
	ErrorTypePermanent   = "permanent"
	ErrorTypeCircuitOpen = "circuit_open"
)

// FailureRecord describes a client that could not be enriched. Message is
// safe to show to operators; it never carries raw upstream API text.
type FailureRecord struct {
	ClientID  int64     `json:"client_id"`
	Message   string    `json:"message"`
	ErrorType string    `json:"error_type"`
	Attempts  int       `json:"attempts"`
	FailedAt  time.Time `json:"failed_at"`
}

// NewFailureRecord builds a record from a failed outcome. describe maps the
// error to an operator-facing message.
func NewFailureRecord(out Outcome, describe func(error) string, at time.Time) FailureRecord {
	msg := "enrichment failed"
	if describe != nil && out.Err != nil {
		msg = describe(out.Err)
	}
	return FailureRecord{
		ClientID:  out.ClientID,
		Message:   msg,
		ErrorType: ClassifyError(out.Err),
		Attempts:  out.Attempts,
		FailedAt:  at,
	}
}

// Retryable reports whether a later resume may succeed for this client.
func (r FailureRecord) Retryable() bool {
	return r.ErrorType != ErrorTypePermanent
}

// ClassifyError categorizes an error as circuit_open, transient or permanent.
func ClassifyError(err error) string {
	switch {
	case errors.Is(err, ErrCircuitOpen):
		return ErrorTypeCircuitOpen
	case IsTransient(err):
		return ErrorTypeTransient
	default:
		return ErrorTypePermanent
	}
}
