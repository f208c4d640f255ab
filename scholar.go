// Package scholar provides a library for semantic search over conference
// abstracts and their authors.
//
// Scholar imports abstract records, embeds their text into dense vectors,
// maintains exact nearest-neighbor indices for abstracts and for author
// aggregate vectors, and keeps both indices synchronized with the
// relational store as records change.
//
// Basic usage:
//
//	client, err := scholar.New(
//	    scholar.WithSQLite(".scholar/data.db"),
//	    scholar.WithOpenAI(os.Getenv("OPENAI_API_KEY")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Import abstracts
//	report, err := client.Importer.Import(ctx, rows)
//
//	// Keyword search
//	page, err := client.Search.SearchAbstracts(ctx, "transformer attention",
//	    service.WithPageSize(10),
//	)
//
//	for _, hit := range page.Hits {
//	    fmt.Println(hit.Abstract.Title())
//	}
package scholar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/helixml/scholar/application/service"
	"github.com/helixml/scholar/domain/search"
	"github.com/helixml/scholar/infrastructure/index"
	"github.com/helixml/scholar/infrastructure/persistence"
	"github.com/helixml/scholar/infrastructure/provider"
	"github.com/helixml/scholar/internal/config"
	"github.com/helixml/scholar/internal/database"
	"github.com/helixml/scholar/internal/log"
)

// Client is the main entry point for the scholar library.
// Indices are loaded (or built from the relational store) on creation
// and saved on Close.
//
// Access resources via struct fields:
//
//	client.Search.SearchAbstracts(ctx, "keyword")
//	client.Abstracts.Get(ctx, id)
//	client.Admin.Reindex(ctx)
type Client struct {
	// Public resource fields (direct service access)
	Abstracts  *service.Abstracts
	Authors    *service.Authors
	Categories *service.Categories
	Search     *service.Search
	Importer   *service.Importer
	Admin      *service.Admin

	db       database.Database
	indices  *index.MultiIndex
	settings *service.Settings
	model    provider.Provider

	hugotEmbedding *provider.HugotEmbedding
	closers        []io.Closer

	logger  *log.Logger
	dataDir string
	closed  atomic.Bool
	mu      sync.Mutex
}

// New creates a new Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.database == databaseUnset {
		return nil, ErrNoDatabase
	}

	// Set up logger
	logger := cfg.logger
	if logger == nil {
		logger = log.Default()
	}
	slogger := logger.Slog()

	// Set up data and index directories
	dataDir, err := config.PrepareDataDir(cfg.dataDir)
	if err != nil {
		return nil, err
	}
	indexDir, err := config.PrepareIndexDir(cfg.indexDir, dataDir)
	if err != nil {
		return nil, err
	}

	// Fall back to the built-in embedding provider if no external
	// provider is configured. Unlike the relational store, the embedding
	// backend is optional: without one the client still serves listings,
	// details, and vectorless imports, and keyword search reports the
	// index as unavailable.
	var hugotEmbedding *provider.HugotEmbedding
	if cfg.embeddingProvider == nil {
		modelDir := cfg.modelDir
		if modelDir == "" {
			modelDir = filepath.Join(dataDir, config.DefaultModelSubdir)
		}
		builtin := provider.NewHugotEmbedding(modelDir)
		if builtin.Available() {
			hugotEmbedding = builtin
			cfg.embeddingProvider = builtin
			logger.Info("built-in embedding provider enabled", slog.String("model_dir", modelDir))
		} else {
			logger.Warn("no embedding model found, keyword search disabled",
				slog.String("model_dir", modelDir))
		}
	}

	// Parse index metrics
	metric, err := search.ParseMetric(cfg.metric)
	if err != nil {
		return nil, fmt.Errorf("index metric: %w", err)
	}
	authorMetricName := cfg.authorMetric
	if authorMetricName == "" {
		authorMetricName = cfg.metric
	}
	authorMetric, err := search.ParseMetric(authorMetricName)
	if err != nil {
		return nil, fmt.Errorf("author index metric: %w", err)
	}

	// Open database
	ctx := context.Background()
	dbURL, err := buildDatabaseURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("build database url: %w", err)
	}
	db, err := database.NewDatabase(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Run auto migration
	if err := persistence.AutoMigrate(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("auto migrate: %w", err), errClose)
	}

	// Validate schema matches GORM models
	if err := persistence.ValidateSchema(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("validate schema: %w", err), errClose)
	}

	// Create stores
	abstractStore := persistence.NewAbstractStore(db)
	authorStore := persistence.NewAuthorStore(db)
	categoryStore := persistence.NewCategoryStore(db)

	// Load or build the vector indices
	abstractIndex := index.NewStore("abstracts", cfg.dimension, metric,
		filepath.Join(indexDir, config.AbstractIndexFilename), slogger)
	authorIndex := index.NewStore("authors", cfg.dimension, authorMetric,
		filepath.Join(indexDir, config.AuthorIndexFilename), slogger)
	indices := index.NewMultiIndex(abstractIndex, authorIndex, slogger)
	if err := indices.LoadOrBuild(ctx, abstractStore, authorStore); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("load indices: %w", err), errClose)
	}

	// Create domain embedder from infrastructure provider
	var embedder search.Embedder
	if cfg.embeddingProvider != nil {
		embedder = provider.NewEmbedderAdapter(cfg.embeddingProvider)
	}

	settings := service.NewSettings(cfg.showScores, cfg.scoreMode)

	client := &Client{
		db:             db,
		indices:        indices,
		settings:       settings,
		model:          cfg.embeddingProvider,
		hugotEmbedding: hugotEmbedding,
		closers:        cfg.closers,
		logger:         logger,
		dataDir:        dataDir,
	}

	// Initialize service fields directly
	synchronizer := service.NewSynchronizer(abstractStore, authorStore, abstractIndex, authorIndex, slogger)
	client.Search = service.NewSearch(abstractStore, authorStore, abstractIndex, authorIndex,
		embedder, settings, cfg.oversampleFactor, &client.closed, slogger)
	client.Importer = service.NewImporter(abstractStore, authorStore, categoryStore, embedder, synchronizer, slogger)
	client.Abstracts = service.NewAbstracts(abstractStore, categoryStore, embedder, synchronizer, slogger)
	client.Authors = service.NewAuthors(authorStore, abstractStore, synchronizer, slogger)
	client.Categories = service.NewCategories(categoryStore, slogger)

	var model service.ModelInfo
	if cfg.embeddingProvider != nil {
		model = cfg.embeddingProvider
	}
	wipe := func(context.Context) error { return persistence.Reset(db) }
	client.Admin = service.NewAdmin(abstractStore, authorStore, abstractIndex, authorIndex,
		model, settings, logger.LevelVar(), wipe, slogger)

	return client, nil
}

// Close saves the indices and releases all resources.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Persist index state so the next start loads instead of rebuilding
	if err := c.indices.Save(context.Background()); err != nil {
		c.logger.Error("failed to save indices", slog.Any("error", err))
	}

	// Close built-in embedding provider
	if c.hugotEmbedding != nil {
		if err := c.hugotEmbedding.Close(); err != nil {
			c.logger.Error("failed to close hugot embedding", slog.Any("error", err))
		}
	}

	// Close registered resources (e.g. caching transports)
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			c.logger.Error("failed to close resource", slog.Any("error", err))
		}
	}

	// Close the database
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	c.logger.Info("scholar client closed")
	return nil
}

// Logger returns the client's logger.
func (c *Client) Logger() *log.Logger {
	return c.logger
}

// ModelName returns the embedding model identifier, or "" when no
// embedding backend is configured.
func (c *Client) ModelName() string {
	if c.model == nil {
		return ""
	}
	return c.model.ModelName()
}

// buildDatabaseURL constructs the database URL from configuration.
func buildDatabaseURL(cfg *clientConfig) (string, error) {
	switch cfg.database {
	case databaseSQLite:
		return "sqlite:///" + cfg.dbPath, nil
	case databasePostgres:
		return cfg.dbDSN, nil
	default:
		return "", ErrNoDatabase
	}
}
