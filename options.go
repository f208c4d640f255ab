package scholar

import (
	"io"

	"github.com/helixml/scholar/infrastructure/provider"
	"github.com/helixml/scholar/internal/config"
	"github.com/helixml/scholar/internal/log"
)

// databaseType identifies the database.
type databaseType int

const (
	databaseUnset databaseType = iota
	databaseSQLite
	databasePostgres
)

// clientConfig holds configuration for Client construction.
// Use newClientConfig() to create with defaults from internal/config.
type clientConfig struct {
	database          databaseType
	dbPath            string
	dbDSN             string
	dataDir           string
	indexDir          string
	modelDir          string
	embeddingProvider provider.Provider
	logger            *log.Logger
	dimension         int
	metric            string
	authorMetric      string
	oversampleFactor  int
	showScores        bool
	scoreMode         string
	closers           []io.Closer
}

// newClientConfig creates a clientConfig with defaults from internal/config.
// This ensures all defaults come from the single source of truth.
func newClientConfig() *clientConfig {
	return &clientConfig{
		dataDir:          config.DefaultDataDir(),
		dimension:        config.DefaultVectorDim,
		metric:           config.DefaultMetric,
		oversampleFactor: config.DefaultOversampleFactor,
		scoreMode:        config.DefaultScoreMode,
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithSQLite configures SQLite as the database.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		c.database = databaseSQLite
		c.dbPath = path
	}
}

// WithPostgres configures PostgreSQL via a DSN.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) {
		c.database = databasePostgres
		c.dbDSN = dsn
	}
}

// WithOpenAI sets an OpenAI-compatible API as the embedding provider.
func WithOpenAI(apiKey string) Option {
	return func(c *clientConfig) {
		c.embeddingProvider = provider.NewOpenAIProvider(apiKey)
	}
}

// WithOpenAIConfig sets an OpenAI-compatible API with custom configuration.
func WithOpenAIConfig(cfg provider.OpenAIConfig) Option {
	return func(c *clientConfig) {
		c.embeddingProvider = provider.NewOpenAIProviderFromConfig(cfg)
	}
}

// WithEmbeddingProvider sets a custom embedding provider.
func WithEmbeddingProvider(p provider.Provider) Option {
	return func(c *clientConfig) {
		c.embeddingProvider = p
	}
}

// WithDataDir sets the data directory for the database, index files,
// and model cache.
func WithDataDir(dir string) Option {
	return func(c *clientConfig) {
		c.dataDir = dir
	}
}

// WithIndexDir sets the directory where index files are persisted.
// If not specified, defaults to {dataDir}/index.
func WithIndexDir(dir string) Option {
	return func(c *clientConfig) {
		c.indexDir = dir
	}
}

// WithModelDir sets the directory where built-in model files are stored.
// Defaults to {dataDir}/models if not specified.
func WithModelDir(dir string) Option {
	return func(c *clientConfig) {
		c.modelDir = dir
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *log.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithVectorDimension sets the embedding dimension both indices enforce.
// Values <= 0 are ignored.
func WithVectorDimension(d int) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.dimension = d
		}
	}
}

// WithMetric sets the distance metric for the abstract index. The
// author index follows it unless WithAuthorMetric overrides.
func WithMetric(metric string) Option {
	return func(c *clientConfig) {
		if metric != "" {
			c.metric = metric
		}
	}
}

// WithAuthorMetric sets an explicit distance metric for the author index.
func WithAuthorMetric(metric string) Option {
	return func(c *clientConfig) {
		c.authorMetric = metric
	}
}

// WithOversampleFactor sets the candidate multiplier keyword searches
// use to survive category filtering. Values <= 0 are ignored.
func WithOversampleFactor(n int) Option {
	return func(c *clientConfig) {
		if n > 0 {
			c.oversampleFactor = n
		}
	}
}

// WithShowScores sets whether search responses carry scores by default.
func WithShowScores(show bool) Option {
	return func(c *clientConfig) {
		c.showScores = show
	}
}

// WithScoreMode sets the default score presentation, "cosine" or
// "distance". Empty values are ignored.
func WithScoreMode(mode string) Option {
	return func(c *clientConfig) {
		if mode != "" {
			c.scoreMode = mode
		}
	}
}

// WithCloser registers a resource to be closed when the Client shuts down.
func WithCloser(c io.Closer) Option {
	return func(cfg *clientConfig) {
		cfg.closers = append(cfg.closers, c)
	}
}
