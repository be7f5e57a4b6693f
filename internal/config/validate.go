package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks the settings a command needs. Mode is one of enrich,
// batch, serve, import or migrate. All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string
	req := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, msg)
		}
	}

	switch mode {
	case "enrich", "batch", "serve":
		c.validateStore(req)
		req(c.Anthropic.Key != "", "anthropic.key is required")
		req(c.Anthropic.MaxTokens > 0, "anthropic.max_tokens must be > 0")
		req(c.Anthropic.RequestsPerSecond > 0, "anthropic.requests_per_second must be > 0")
		req(c.Enrich.SimilarityThreshold > 0 && c.Enrich.SimilarityThreshold <= 1,
			"enrich.similarity_threshold must be in (0, 1]")
		req(c.Batch.BatchSize > 0, "batch.batch_size must be > 0")
		req(c.Batch.Concurrency >= 1 && c.Batch.Concurrency <= 50, "batch.concurrency must be between 1 and 50")
		req(c.Batch.MaxRetries >= 0, "batch.max_retries must be >= 0")
		req(c.Breaker.FailureThreshold > 0, "breaker.failure_threshold must be > 0")
		req(c.Breaker.CooldownSecs > 0, "breaker.cooldown_secs must be > 0")
		if mode == "serve" {
			req(c.Server.Port > 0 && c.Server.Port < 65536, "server.port must be > 0 and < 65536")
		}
	case "import", "migrate":
		c.validateStore(req)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore(req func(bool, string)) {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		req(false, "store.driver must be sqlite or postgres")
	}
	req(c.Store.DatabaseURL != "", "store.database_url is required")
}
