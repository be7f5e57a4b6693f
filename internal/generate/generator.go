// Package generate turns a client seed into structured market intelligence
// through a single generative-model call.
package generate

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/resilience"
	"github.com/sells-group/market-intel/pkg/anthropic"
)

var (
	// ErrMalformedResponse means the model returned text that is not a JSON object.
	ErrMalformedResponse = errors.New("generate: malformed response")
	// ErrInvalidStructure means the JSON parsed but has no usable markets.
	ErrInvalidStructure = errors.New("generate: invalid response structure")
)

// Generator produces enrichment data for one client.
type Generator interface {
	Generate(ctx context.Context, seed model.ClientSeed) (*model.GeneratedData, error)
}

// Config controls the Anthropic-backed generator.
type Config struct {
	Model       string
	MaxTokens   int64
	Temperature float64

	// RequestsPerSecond bounds outgoing calls across all workers.
	RequestsPerSecond float64
	Burst             int

	// MalformedRetries is how many extra calls are made when the response
	// cannot be parsed.
	MalformedRetries int

	// Retry governs transient transport failures.
	Retry resilience.RetryConfig
}

// DefaultConfig returns the generator defaults.
func DefaultConfig() Config {
	return Config{
		Model:             "claude-haiku-4-5-20251001",
		MaxTokens:         5000,
		Temperature:       0.3,
		RequestsPerSecond: 5,
		Burst:             5,
		MalformedRetries:  1,
		Retry:             resilience.DefaultRetryConfig(),
	}
}

// AnthropicGenerator implements Generator on top of the Anthropic API.
type AnthropicGenerator struct {
	client  anthropic.Client
	cfg     Config
	limiter *rate.Limiter
}

// NewAnthropicGenerator creates a generator. Zero config values fall back
// to DefaultConfig.
func NewAnthropicGenerator(client anthropic.Client, cfg Config) *AnthropicGenerator {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.MalformedRetries < 0 {
		cfg.MalformedRetries = 0
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = def.Retry
	}
	if cfg.Retry.OnRetry == nil {
		cfg.Retry.OnRetry = resilience.RetryLogger("anthropic", "create_message")
	}
	return &AnthropicGenerator{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
}

// Generate calls the model and parses its answer. Malformed answers are
// re-requested up to MalformedRetries times; token usage of every call is
// accumulated into the result.
func (g *AnthropicGenerator) Generate(ctx context.Context, seed model.ClientSeed) (*model.GeneratedData, error) {
	if strings.TrimSpace(seed.Name) == "" {
		return nil, eris.New("generate: client name is required")
	}

	log := zap.L().With(zap.Int64("client_id", seed.ClientID), zap.String("model", g.cfg.Model))
	req := g.buildRequest(seed)

	var usage anthropic.TokenUsage
	var lastErr error
	for attempt := 0; attempt <= g.cfg.MalformedRetries; attempt++ {
		resp, err := g.call(ctx, req)
		if err != nil {
			return nil, eris.Wrapf(err, "generate: client %d", seed.ClientID)
		}
		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens

		data, err := parseResponse(resp)
		if err == nil {
			usage.LogCost(g.cfg.Model, seed.ClientID)
			data.Usage = model.TokenUsage{
				InputTokens:  int(usage.InputTokens),
				OutputTokens: int(usage.OutputTokens),
				Cost:         usage.EstimateCost(g.cfg.Model),
			}
			return data, nil
		}

		lastErr = err
		log.Warn("generate: unusable response",
			zap.Int("attempt", attempt+1),
			zap.String("stop_reason", resp.StopReason),
			zap.Error(err),
		)
	}

	usage.LogCost(g.cfg.Model, seed.ClientID)
	return nil, eris.Wrapf(lastErr, "generate: client %d after %d attempts", seed.ClientID, g.cfg.MalformedRetries+1)
}

func (g *AnthropicGenerator) buildRequest(seed model.ClientSeed) anthropic.MessageRequest {
	temp := g.cfg.Temperature
	return anthropic.MessageRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		System:      systemPrompt,
		Messages:    []anthropic.Message{{Role: "user", Content: buildUserPrompt(seed)}},
		Temperature: &temp,
	}
}

// call sends one request through the limiter, retrying transient failures.
func (g *AnthropicGenerator) call(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return resilience.DoVal(ctx, g.cfg.Retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "generate: rate limit wait")
		}
		resp, err := g.client.CreateMessage(ctx, req)
		if err != nil {
			if code := anthropic.StatusCode(err); resilience.IsTransientHTTPStatus(code) {
				return nil, resilience.NewTransientError(err, code)
			}
			return nil, err
		}
		return resp, nil
	})
}
