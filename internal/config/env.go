// Package config provides application configuration.
package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Nested structs use underscore delimiter (e.g., EMBEDDING_BASE_URL).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.scholar
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the database connection URL.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/scholar.db
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// CORSOrigins is a comma-separated list of allowed origins.
	// Env: CORS_ORIGINS (default: *)
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"*"`

	// Embedding configures the embedding service.
	Embedding EmbeddingEnv `envconfig:"EMBEDDING"`

	// Index configures the vector indices.
	Index IndexEnv `envconfig:"INDEX"`

	// Search configures search behaviour defaults.
	Search SearchEnv `envconfig:"SEARCH"`
}

// EmbeddingEnv holds environment configuration for the embedding service.
type EmbeddingEnv struct {
	// Provider selects the embedding backend (openai or local).
	// Env: EMBEDDING_PROVIDER (default: openai)
	Provider string `envconfig:"PROVIDER" default:"openai"`

	// BaseURL is the base URL for OpenAI-compatible endpoints.
	// Env: EMBEDDING_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Model is the model identifier.
	// Env: EMBEDDING_MODEL (default: text-embedding-3-small)
	Model string `envconfig:"MODEL" default:"text-embedding-3-small"`

	// APIKey is the API key for authentication.
	// Env: EMBEDDING_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Timeout is the request timeout in seconds.
	// Env: EMBEDDING_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`

	// MaxRetries is the maximum number of retries.
	// Env: EMBEDDING_MAX_RETRIES (default: 5)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"5"`

	// InitialDelay is the initial retry delay in seconds.
	// Env: EMBEDDING_INITIAL_DELAY (default: 2.0)
	InitialDelay float64 `envconfig:"INITIAL_DELAY" default:"2.0"`

	// BackoffFactor is the retry backoff multiplier.
	// Env: EMBEDDING_BACKOFF_FACTOR (default: 2.0)
	BackoffFactor float64 `envconfig:"BACKOFF_FACTOR" default:"2.0"`

	// BatchSize is the maximum number of texts per embedding call.
	// Env: EMBEDDING_BATCH_SIZE (default: 10)
	BatchSize int `envconfig:"BATCH_SIZE" default:"10"`
}

// IndexEnv holds environment configuration for the vector indices.
type IndexEnv struct {
	// Dim is the vector dimension shared by both indices.
	// Env: INDEX_DIM (default: 384)
	Dim int `envconfig:"DIM" default:"384"`

	// Metric is the distance metric (l2 or ip).
	// Env: INDEX_METRIC (default: l2)
	Metric string `envconfig:"METRIC" default:"l2"`

	// AuthorMetric overrides the metric for the author index.
	// Env: INDEX_AUTHOR_METRIC
	AuthorMetric string `envconfig:"AUTHOR_METRIC"`
}

// SearchEnv holds environment configuration for search defaults.
type SearchEnv struct {
	// OversampleFactor multiplies the candidate count fetched from the
	// index to survive post-hoc filtering.
	// Env: SEARCH_OVERSAMPLE_FACTOR (default: 5)
	OversampleFactor int `envconfig:"OVERSAMPLE_FACTOR" default:"5"`

	// ShowScores controls whether scores are attached by default.
	// Env: SEARCH_SHOW_SCORES (default: false)
	ShowScores bool `envconfig:"SHOW_SCORES" default:"false"`

	// ScoreMode selects the score computation (cosine or distance).
	// Env: SEARCH_SCORE_MODE (default: cosine)
	ScoreMode string `envconfig:"SCORE_MODE" default:"cosine"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "SCHOLAR" would require SCHOLAR_DATA_DIR instead
// of DATA_DIR.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// Normalize lowercases and trims enum-like fields so later parsing can
// match exact values. It returns a copy; the receiver is unchanged.
func (e EnvConfig) Normalize() EnvConfig {
	e.LogFormat = strings.ToLower(strings.TrimSpace(e.LogFormat))
	e.Embedding.Provider = strings.ToLower(strings.TrimSpace(e.Embedding.Provider))
	e.Index.Metric = strings.ToLower(strings.TrimSpace(e.Index.Metric))
	e.Index.AuthorMetric = strings.ToLower(strings.TrimSpace(e.Index.AuthorMetric))
	e.Search.ScoreMode = strings.ToLower(strings.TrimSpace(e.Search.ScoreMode))
	return e
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	// Apply overrides from environment
	if e.Host != "" {
		cfg = applyOption(cfg, WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = applyOption(cfg, WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = applyOption(cfg, WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		cfg = applyOption(cfg, WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		cfg = applyOption(cfg, WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = applyOption(cfg, WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	if e.CORSOrigins != "" {
		cfg = applyOption(cfg, WithCORSOrigins(ParseOrigins(e.CORSOrigins)))
	}

	cfg = applyOption(cfg, WithEmbeddingEndpoint(e.Embedding.ToEndpoint()))
	cfg = applyOption(cfg, WithIndexConfig(e.Index.ToIndexConfig()))
	cfg = applyOption(cfg, WithSearchConfig(e.Search.ToSearchConfig()))

	return cfg
}

// applyOption applies an option to the config.
func applyOption(cfg AppConfig, opt AppConfigOption) AppConfig {
	opt(&cfg)
	return cfg
}

// ToEndpoint converts EmbeddingEnv to Endpoint.
func (e EmbeddingEnv) ToEndpoint() Endpoint {
	opts := []EndpointOption{
		WithProvider(parseProvider(e.Provider)),
		WithModel(e.Model),
		WithTimeout(time.Duration(e.Timeout * float64(time.Second))),
		WithMaxRetries(e.MaxRetries),
		WithInitialDelay(time.Duration(e.InitialDelay * float64(time.Second))),
		WithBackoffFactor(e.BackoffFactor),
		WithBatchSize(e.BatchSize),
	}

	if e.BaseURL != "" {
		opts = append(opts, WithBaseURL(e.BaseURL))
	}
	if e.APIKey != "" {
		opts = append(opts, WithAPIKey(e.APIKey))
	}

	return NewEndpointWithOptions(opts...)
}

// ToIndexConfig converts IndexEnv to IndexConfig.
func (i IndexEnv) ToIndexConfig() IndexConfig {
	return NewIndexConfig().
		WithDimension(i.Dim).
		WithMetric(i.Metric).
		WithAuthorMetric(i.AuthorMetric)
}

// ToSearchConfig converts SearchEnv to SearchConfig.
func (s SearchEnv) ToSearchConfig() SearchConfig {
	return NewSearchConfig().
		WithOversampleFactor(s.OversampleFactor).
		WithShowScores(s.ShowScores).
		WithScoreMode(s.ScoreMode)
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}

// parseProvider parses an embedding provider string.
func parseProvider(s string) EmbeddingProvider {
	switch strings.ToLower(s) {
	case "local":
		return ProviderLocal
	default:
		return ProviderOpenAI
	}
}
