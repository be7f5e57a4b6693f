package main

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-intel/internal/batch"
	"github.com/sells-group/market-intel/internal/config"
	"github.com/sells-group/market-intel/internal/enrich"
	"github.com/sells-group/market-intel/internal/generate"
	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/quality"
	"github.com/sells-group/market-intel/internal/resilience"
	"github.com/sells-group/market-intel/internal/store"
	anthropicpkg "github.com/sells-group/market-intel/pkg/anthropic"
)

// enrichEnv holds the store and the components built on top of it for the
// enrich, batch and serve commands.
type enrichEnv struct {
	Store     store.Store
	Enricher  *enrich.Orchestrator
	Scheduler *batch.Scheduler
}

// Close releases the store.
func (e *enrichEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnrichment validates cfg for mode and wires the store, the generator,
// the orchestrator and the scheduler. Callers should defer env.Close().
func initEnrichment(ctx context.Context, c *config.Config, mode string) (*enrichEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	opts, err := enrichOptions(c.Enrich)
	if err != nil {
		return nil, err
	}

	st, err := openStore(ctx, c.Store)
	if err != nil {
		return nil, err
	}

	var clientOpts []option.RequestOption
	if c.Anthropic.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(c.Anthropic.BaseURL))
	}
	gen := generate.NewAnthropicGenerator(
		anthropicpkg.NewClient(c.Anthropic.Key, clientOpts...),
		generatorConfig(c.Anthropic),
	)

	orch := enrich.New(st, gen, opts)
	breakerCfg := resilience.FromCircuitConfig(c.Breaker.FailureThreshold, c.Breaker.CooldownSecs)
	breakerCfg.OnStateChange = logBreakerTransition
	breaker := resilience.NewCircuitBreaker(breakerCfg)

	zap.L().Debug("enrichment initialized",
		zap.String("store", c.Store.Driver),
		zap.String("model", c.Anthropic.Model),
	)
	return &enrichEnv{
		Store:     st,
		Enricher:  orch,
		Scheduler: batch.NewScheduler(st, orch, breaker),
	}, nil
}

func generatorConfig(ac config.AnthropicConfig) generate.Config {
	return generate.Config{
		Model:             ac.Model,
		MaxTokens:         ac.MaxTokens,
		Temperature:       ac.Temperature,
		RequestsPerSecond: ac.RequestsPerSecond,
		Burst:             ac.Burst,
		MalformedRetries:  ac.MalformedRetries,
		Retry: resilience.FromRetryConfig(
			ac.Retry.MaxAttempts, ac.Retry.InitialBackoffMs, ac.Retry.MaxBackoffMs, ac.Retry.JitterFraction,
		),
	}
}

func enrichOptions(ec config.EnrichConfig) (enrich.Options, error) {
	opts := enrich.Options{
		Caps: model.Caps{
			Markets:     ec.MaxMarkets,
			Products:    ec.MaxProducts,
			Competitors: ec.MaxCompetitors,
			Leads:       ec.MaxLeads,
		},
		Threshold: ec.SimilarityThreshold,
	}
	if ec.QualityProfile != "" {
		profile, err := quality.LoadProfile(ec.QualityProfile)
		if err != nil {
			return enrich.Options{}, eris.Wrap(err, "load quality profile")
		}
		opts.Scorer = quality.NewScorer(profile)
	}
	return opts, nil
}

func batchOptions(bc config.BatchConfig) batch.Options {
	guard := resilience.FromGuardConfig(bc.MaxRetries, bc.BaseDelayMs, bc.MaxDelayMs)
	return batch.Options{
		BatchSize:   bc.BatchSize,
		Concurrency: bc.Concurrency,
		MaxRetries:  guard.MaxRetries,
		BaseDelay:   guard.BaseDelay,
		MaxDelay:    guard.MaxDelay,
	}
}

// logBreakerTransition records every open/close of the shared breaker.
func logBreakerTransition(from, to resilience.CircuitState) {
	if to == resilience.CircuitOpen {
		zap.L().Warn("circuit breaker opened, batches pause until it is reset or cools down",
			zap.Stringer("from", from), zap.Stringer("to", to))
		return
	}
	zap.L().Info("circuit breaker closed",
		zap.Stringer("from", from), zap.Stringer("to", to))
}
