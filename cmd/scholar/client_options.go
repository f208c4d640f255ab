package main

import (
	"strings"

	"github.com/helixml/scholar"
	"github.com/helixml/scholar/infrastructure/provider"
	"github.com/helixml/scholar/internal/config"
)

// clientOptions returns the scholar.Option slice derived from the shared
// parts of AppConfig: database storage, embedding provider, and index and
// scoring settings. Callers append entrypoint-specific options (data dir,
// logger) before passing the full slice to scholar.New.
func clientOptions(cfg config.AppConfig) []scholar.Option {
	var opts []scholar.Option

	opts = append(opts, storageOptions(cfg)...)
	opts = append(opts, embeddingOptions(cfg)...)
	opts = append(opts, indexOptions(cfg)...)
	opts = append(opts, searchOptions(cfg)...)

	return opts
}

// storageOptions returns the scholar.Option for the configured database
// backend.
func storageOptions(cfg config.AppConfig) []scholar.Option {
	dbURL := cfg.DBURL()

	if dbURL != "" && !isSQLite(dbURL) {
		return []scholar.Option{scholar.WithPostgres(dbURL)}
	}

	dbPath := cfg.DataDir() + "/scholar.db"
	if dbURL != "" && isSQLite(dbURL) {
		dbPath = strings.TrimPrefix(dbURL, "sqlite:///")
		if dbPath == dbURL {
			dbPath = strings.TrimPrefix(dbURL, "sqlite:")
		}
	}

	return []scholar.Option{scholar.WithSQLite(dbPath)}
}

// embeddingOptions returns the scholar.Option for the configured embedding
// backend. The local provider serves the bundled sentence transformer; the
// OpenAI provider needs an API key or an alternative base URL. An
// unconfigured endpoint returns no option and leaves provider selection to
// the client.
func embeddingOptions(cfg config.AppConfig) []scholar.Option {
	endpoint := cfg.Embedding()

	if endpoint.Provider() == config.ProviderLocal {
		return []scholar.Option{
			scholar.WithEmbeddingProvider(provider.NewHugotEmbedding(cfg.ModelDir())),
		}
	}

	if !endpoint.IsConfigured() {
		return nil
	}

	return []scholar.Option{
		scholar.WithOpenAIConfig(provider.OpenAIConfig{
			APIKey:         endpoint.APIKey(),
			BaseURL:        endpoint.BaseURL(),
			EmbeddingModel: endpoint.Model(),
			BatchSize:      endpoint.BatchSize(),
			Timeout:        endpoint.Timeout(),
			MaxRetries:     endpoint.MaxRetries(),
			InitialDelay:   endpoint.InitialDelay(),
			BackoffFactor:  endpoint.BackoffFactor(),
		}),
	}
}

// indexOptions returns the scholar.Option slice for the vector indices.
func indexOptions(cfg config.AppConfig) []scholar.Option {
	index := cfg.Index()

	opts := []scholar.Option{
		scholar.WithVectorDimension(index.Dimension()),
		scholar.WithMetric(index.Metric()),
	}
	if index.AuthorMetric() != index.Metric() {
		opts = append(opts, scholar.WithAuthorMetric(index.AuthorMetric()))
	}
	return opts
}

// searchOptions returns the scholar.Option slice for search defaults.
func searchOptions(cfg config.AppConfig) []scholar.Option {
	search := cfg.Search()

	return []scholar.Option{
		scholar.WithOversampleFactor(search.OversampleFactor()),
		scholar.WithShowScores(search.ShowScores()),
		scholar.WithScoreMode(search.ScoreMode()),
	}
}

// isSQLite checks if the database URL is for SQLite.
func isSQLite(url string) bool {
	return strings.HasPrefix(url, "sqlite:")
}
