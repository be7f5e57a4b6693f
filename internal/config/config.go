package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Breaker   BreakerConfig   `yaml:"breaker" mapstructure:"breaker"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API and generation settings.
type AnthropicConfig struct {
	Key               string      `yaml:"key" mapstructure:"key"`
	BaseURL           string      `yaml:"base_url" mapstructure:"base_url"`
	Model             string      `yaml:"model" mapstructure:"model"`
	MaxTokens         int64       `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature       float64     `yaml:"temperature" mapstructure:"temperature"`
	RequestsPerSecond float64     `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int         `yaml:"burst" mapstructure:"burst"`
	MalformedRetries  int         `yaml:"malformed_retries" mapstructure:"malformed_retries"`
	Retry             RetryConfig `yaml:"retry" mapstructure:"retry"`
}

// RetryConfig configures transient-error retries of a single API call.
type RetryConfig struct {
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int     `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int     `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	JitterFraction   float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// EnrichConfig configures the per-client orchestrator.
type EnrichConfig struct {
	MaxMarkets          int     `yaml:"max_markets" mapstructure:"max_markets"`
	MaxProducts         int     `yaml:"max_products" mapstructure:"max_products"`
	MaxCompetitors      int     `yaml:"max_competitors" mapstructure:"max_competitors"`
	MaxLeads            int     `yaml:"max_leads" mapstructure:"max_leads"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	// QualityProfile is an optional YAML file overriding score weights and bands.
	QualityProfile string `yaml:"quality_profile" mapstructure:"quality_profile"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	BatchSize   int `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	MaxRetries  int `yaml:"max_retries" mapstructure:"max_retries"`
	BaseDelayMs int `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	MaxDelayMs  int `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
}

// BreakerConfig configures the circuit breaker shared by batch jobs.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	CooldownSecs     int `yaml:"cooldown_secs" mapstructure:"cooldown_secs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port                int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins      []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ShutdownTimeoutSecs int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MARKETINTEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "market-intel.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout_secs", 15)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 5000)
	v.SetDefault("anthropic.temperature", 0.3)
	v.SetDefault("anthropic.requests_per_second", 5)
	v.SetDefault("anthropic.burst", 5)
	v.SetDefault("anthropic.malformed_retries", 1)
	v.SetDefault("anthropic.retry.max_attempts", 3)
	v.SetDefault("anthropic.retry.initial_backoff_ms", 500)
	v.SetDefault("anthropic.retry.max_backoff_ms", 30000)
	v.SetDefault("anthropic.retry.jitter_fraction", 0.25)
	v.SetDefault("enrich.max_markets", 2)
	v.SetDefault("enrich.max_products", 3)
	v.SetDefault("enrich.max_competitors", 10)
	v.SetDefault("enrich.max_leads", 5)
	v.SetDefault("enrich.similarity_threshold", 0.85)
	v.SetDefault("enrich.quality_profile", "")
	v.SetDefault("batch.batch_size", 50)
	v.SetDefault("batch.concurrency", 5)
	v.SetDefault("batch.max_retries", 3)
	v.SetDefault("batch.base_delay_ms", 1000)
	v.SetDefault("batch.max_delay_ms", 30000)
	v.SetDefault("breaker.failure_threshold", 10)
	v.SetDefault("breaker.cooldown_secs", 60)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
