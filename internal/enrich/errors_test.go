package enrich

import (
	"context"
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/market-intel/internal/generate"
	"github.com/sells-group/market-intel/internal/resilience"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"breaker", eris.Wrap(resilience.ErrCircuitOpen, "client 3"), "enrichment paused: the generation service is failing, try again in a minute"},
		{"not found", eris.Wrapf(ErrClientNotFound, "client %d", 3), "client not found in this project"},
		{"cancelled", context.Canceled, "enrichment cancelled"},
		{"timeout", eris.Wrap(context.DeadlineExceeded, "generate"), "enrichment timed out"},
		{"persist", persistFailed("insert lead", errors.New("pq: relation missing")), "could not save enrichment results"},
		{"malformed", eris.Wrap(generate.ErrMalformedResponse, "x"), "the generation service returned an unusable answer"},
		{"transient", resilience.NewTransientError(errors.New("503"), 503), "the generation service is temporarily unavailable"},
		{"other", errors.New("boom"), "enrichment failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestPersistError_KeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := persistFailed("insert product", cause)
	assert.True(t, errors.Is(err, ErrPersistence))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "enrich: insert product: disk full", err.Error())
}
