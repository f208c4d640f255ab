// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost             = "0.0.0.0"
	DefaultPort             = 8080
	DefaultLogLevel         = "INFO"
	DefaultVectorDim        = 384
	DefaultMetric           = "l2"
	DefaultOversampleFactor = 5
	DefaultPageSize         = 10
	MaxPageSize             = 100
	DefaultTopK             = 5
	MaxTopK                 = 50
	DefaultScoreMode        = "cosine"
	DefaultEmbeddingModel   = "text-embedding-3-small"
	DefaultEmbeddingTimeout = 60 * time.Second
	DefaultEmbeddingRetries = 5
	DefaultEmbeddingDelay   = 2 * time.Second
	DefaultEmbeddingBackoff = 2.0
	DefaultEmbeddingBatch   = 10
	DefaultIndexSubdir      = "index"
	DefaultModelSubdir      = "models"
	AbstractIndexFilename   = "abstracts.idx"
	AuthorIndexFilename     = "authors.idx"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// EmbeddingProvider selects how text is turned into vectors.
type EmbeddingProvider string

// EmbeddingProvider values.
const (
	ProviderOpenAI EmbeddingProvider = "openai"
	ProviderLocal  EmbeddingProvider = "local"
)

// Endpoint configures the embedding service endpoint.
type Endpoint struct {
	provider      EmbeddingProvider
	baseURL       string
	model         string
	apiKey        string
	timeout       time.Duration
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	batchSize     int
}

// NewEndpoint creates a new Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		provider:      ProviderOpenAI,
		model:         DefaultEmbeddingModel,
		timeout:       DefaultEmbeddingTimeout,
		maxRetries:    DefaultEmbeddingRetries,
		initialDelay:  DefaultEmbeddingDelay,
		backoffFactor: DefaultEmbeddingBackoff,
		batchSize:     DefaultEmbeddingBatch,
	}
}

// Provider returns the embedding provider kind.
func (e Endpoint) Provider() EmbeddingProvider { return e.provider }

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Timeout returns the request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the maximum retry count.
func (e Endpoint) MaxRetries() int { return e.maxRetries }

// InitialDelay returns the initial retry delay.
func (e Endpoint) InitialDelay() time.Duration { return e.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (e Endpoint) BackoffFactor() float64 { return e.backoffFactor }

// BatchSize returns the maximum number of texts per embedding call.
func (e Endpoint) BatchSize() int { return e.batchSize }

// IsConfigured returns true if the endpoint can produce embeddings:
// the local provider needs no credentials, OpenAI needs an API key or
// an alternative base URL.
func (e Endpoint) IsConfigured() bool {
	if e.provider == ProviderLocal {
		return true
	}
	return e.apiKey != "" || e.baseURL != ""
}

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithProvider sets the embedding provider kind.
func WithProvider(p EmbeddingProvider) EndpointOption {
	return func(e *Endpoint) { e.provider = p }
}

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the model.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.timeout = d }
}

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) EndpointOption {
	return func(e *Endpoint) { e.maxRetries = n }
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.initialDelay = d }
}

// WithBackoffFactor sets the retry backoff multiplier.
func WithBackoffFactor(f float64) EndpointOption {
	return func(e *Endpoint) { e.backoffFactor = f }
}

// WithBatchSize sets the maximum number of texts per embedding call.
func WithBatchSize(n int) EndpointOption {
	return func(e *Endpoint) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// NewEndpointWithOptions creates an Endpoint with functional options.
func NewEndpointWithOptions(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// IndexConfig configures the vector indices.
type IndexConfig struct {
	dimension    int
	metric       string
	authorMetric string
}

// NewIndexConfig creates a new IndexConfig with defaults.
func NewIndexConfig() IndexConfig {
	return IndexConfig{
		dimension: DefaultVectorDim,
		metric:    DefaultMetric,
	}
}

// Dimension returns the vector dimension shared by both indices.
func (i IndexConfig) Dimension() int { return i.dimension }

// Metric returns the distance metric for the abstract index.
func (i IndexConfig) Metric() string { return i.metric }

// AuthorMetric returns the distance metric for the author index.
// It falls back to the abstract metric when not set explicitly.
func (i IndexConfig) AuthorMetric() string {
	if i.authorMetric == "" {
		return i.metric
	}
	return i.authorMetric
}

// WithDimension returns a new config with the specified dimension.
func (i IndexConfig) WithDimension(d int) IndexConfig {
	if d > 0 {
		i.dimension = d
	}
	return i
}

// WithMetric returns a new config with the specified metric.
func (i IndexConfig) WithMetric(m string) IndexConfig {
	if m != "" {
		i.metric = m
	}
	return i
}

// WithAuthorMetric returns a new config with an explicit author metric.
func (i IndexConfig) WithAuthorMetric(m string) IndexConfig {
	i.authorMetric = m
	return i
}

// SearchConfig configures search behaviour defaults.
type SearchConfig struct {
	oversampleFactor int
	showScores       bool
	scoreMode        string
}

// NewSearchConfig creates a new SearchConfig with defaults.
func NewSearchConfig() SearchConfig {
	return SearchConfig{
		oversampleFactor: DefaultOversampleFactor,
		scoreMode:        DefaultScoreMode,
	}
}

// OversampleFactor returns the candidate multiplier used to survive
// post-hoc filtering.
func (s SearchConfig) OversampleFactor() int { return s.oversampleFactor }

// ShowScores returns whether scores are attached by default.
func (s SearchConfig) ShowScores() bool { return s.showScores }

// ScoreMode returns the default score mode (cosine or distance).
func (s SearchConfig) ScoreMode() string { return s.scoreMode }

// WithOversampleFactor returns a new config with the specified factor.
func (s SearchConfig) WithOversampleFactor(f int) SearchConfig {
	if f > 0 {
		s.oversampleFactor = f
	}
	return s
}

// WithShowScores returns a new config with the specified default.
func (s SearchConfig) WithShowScores(show bool) SearchConfig {
	s.showScores = show
	return s
}

// WithScoreMode returns a new config with the specified mode.
func (s SearchConfig) WithScoreMode(mode string) SearchConfig {
	if mode != "" {
		s.scoreMode = mode
	}
	return s
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	host        string
	port        int
	dataDir     string
	dbURL       string
	logLevel    string
	logFormat   LogFormat
	corsOrigins []string
	embedding   Endpoint
	index       IndexConfig
	search      SearchConfig
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scholar"
	}
	return filepath.Join(home, ".scholar")
}

// PrepareDataDir creates the data directory if needed.
func PrepareDataDir(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dataDir, nil
}

// PrepareIndexDir resolves the index directory (defaulting if empty) and creates it.
func PrepareIndexDir(indexDir, dataDir string) (string, error) {
	if indexDir == "" {
		indexDir = filepath.Join(dataDir, DefaultIndexSubdir)
	}
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return "", fmt.Errorf("create index directory: %w", err)
	}
	return indexDir, nil
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:        DefaultHost,
		port:        DefaultPort,
		dataDir:     dataDir,
		dbURL:       "sqlite:///" + filepath.Join(dataDir, "scholar.db"),
		logLevel:    DefaultLogLevel,
		logFormat:   LogFormatPretty,
		corsOrigins: []string{"*"},
		embedding:   NewEndpoint(),
		index:       NewIndexConfig(),
		search:      NewSearchConfig(),
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// CORSOrigins returns the allowed CORS origins.
func (c AppConfig) CORSOrigins() []string {
	origins := make([]string, len(c.corsOrigins))
	copy(origins, c.corsOrigins)
	return origins
}

// Embedding returns the embedding endpoint config.
func (c AppConfig) Embedding() Endpoint { return c.embedding }

// Index returns the index config.
func (c AppConfig) Index() IndexConfig { return c.index }

// Search returns the search config.
func (c AppConfig) Search() SearchConfig { return c.search }

// IndexDir returns the directory holding persisted index files.
func (c AppConfig) IndexDir() string {
	return filepath.Join(c.dataDir, DefaultIndexSubdir)
}

// AbstractIndexPath returns the persisted abstract index path.
func (c AppConfig) AbstractIndexPath() string {
	return filepath.Join(c.IndexDir(), AbstractIndexFilename)
}

// AuthorIndexPath returns the persisted author index path.
func (c AppConfig) AuthorIndexPath() string {
	return filepath.Join(c.IndexDir(), AuthorIndexFilename)
}

// ModelDir returns the local embedding model cache directory.
func (c AppConfig) ModelDir() string {
	return filepath.Join(c.dataDir, DefaultModelSubdir)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// EnsureIndexDir creates the index directory if it doesn't exist.
func (c AppConfig) EnsureIndexDir() error {
	return os.MkdirAll(c.IndexDir(), 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		c.dataDir = dir
		// Update default DB URL when data dir changes
		if c.dbURL == "" || strings.Contains(c.dbURL, "scholar.db") {
			c.dbURL = "sqlite:///" + filepath.Join(dir, "scholar.db")
		}
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) AppConfigOption {
	return func(c *AppConfig) {
		c.corsOrigins = make([]string, len(origins))
		copy(c.corsOrigins, origins)
	}
}

// WithEmbeddingEndpoint sets the embedding endpoint.
func WithEmbeddingEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.embedding = e }
}

// WithIndexConfig sets the index config.
func WithIndexConfig(i IndexConfig) AppConfigOption {
	return func(c *AppConfig) { c.index = i }
}

// WithSearchConfig sets the search config.
func WithSearchConfig(s SearchConfig) AppConfigOption {
	return func(c *AppConfig) { c.search = s }
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
// This copies all fields from the receiver and then applies the options,
// making it safe to use when adding new fields to AppConfig.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// Sensitive values like API keys are masked.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("log_level", c.logLevel),
		slog.String("db_url", c.maskedDBURL()),
		slog.String("embedding_provider", string(c.embedding.Provider())),
		slog.String("embedding_model", c.embedding.Model()),
		slog.Int("vector_dim", c.index.Dimension()),
		slog.String("index_metric", c.index.Metric()),
		slog.Int("oversample_factor", c.search.OversampleFactor()),
		slog.Bool("show_scores", c.search.ShowScores()),
		slog.String("score_mode", c.search.ScoreMode()),
	}
}

func (c AppConfig) maskedDBURL() string {
	if c.dbURL == "" {
		return "(default)"
	}
	if len(c.dbURL) >= 7 && c.dbURL[:7] == "sqlite:" {
		return c.dbURL
	}
	return "postgres://***@***"
}

// ParseOrigins parses a comma-separated string of CORS origins.
func ParseOrigins(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
