package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/helixml/scholar"
	"github.com/helixml/scholar/infrastructure/api"
	apimiddleware "github.com/helixml/scholar/infrastructure/api/middleware"
	"github.com/helixml/scholar/internal/config"
	"github.com/helixml/scholar/internal/log"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                      Server host to bind to (default: 0.0.0.0)
  PORT                      Server port to listen on (default: 8080)
  DATA_DIR                  Data directory (default: ~/.scholar)
  DB_URL                    Database URL (default: sqlite:///{data_dir}/scholar.db)
  LOG_LEVEL                 Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                Log format: pretty, json (default: pretty)
  CORS_ORIGINS              Comma-separated allowed origins (default: *)

  EMBEDDING_*               Embedding backend configuration
    PROVIDER                Backend: openai, local (default: openai)
    BASE_URL                Base URL (e.g., https://api.openai.com/v1)
    MODEL                   Model identifier (default: text-embedding-3-small)
    API_KEY                 API key for authentication
    TIMEOUT                 Request timeout in seconds (default: 60)
    MAX_RETRIES             Retry attempts (default: 5)
    INITIAL_DELAY           Initial retry delay in seconds (default: 2.0)
    BACKOFF_FACTOR          Retry backoff multiplier (default: 2.0)
    BATCH_SIZE              Texts per embedding call (default: 10)

  INDEX_*                   Vector index configuration
    DIM                     Vector dimension (default: 384)
    METRIC                  Distance metric: l2, ip (default: l2)
    AUTHOR_METRIC           Override metric for the author index

  SEARCH_*                  Search defaults
    OVERSAMPLE_FACTOR       Candidate multiplier for filtered searches (default: 5)
    SHOW_SCORES             Attach scores to results (default: false)
    SCORE_MODE              Score computation: cosine, distance (default: cosine)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(envFile, host string, port int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	// Flags take precedence over env vars.
	cfg = applyServeOverrides(cfg, host, port)

	addr := cfg.Addr()

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if err := cfg.EnsureIndexDir(); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	logger := log.NewLogger(cfg)
	slogger := logger.Slog()

	opts := clientOptions(cfg)
	opts = append(opts,
		scholar.WithDataDir(cfg.DataDir()),
		scholar.WithLogger(logger),
	)

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	slogger.LogAttrs(context.Background(), slog.LevelInfo, "starting scholar", attrs...)

	client, err := scholar.New(opts...)
	if err != nil {
		return fmt.Errorf("create scholar client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close scholar client", "error", err)
		}
	}()

	// Create API server with the client's services
	apiServer := api.NewAPIServer(client, cfg.CORSOrigins())
	router := apiServer.Router()

	// Apply custom middleware (MUST be done before MountRoutes)
	router.Use(apimiddleware.Logging(slogger))

	// Mount API routes after middleware is configured
	apiServer.MountRoutes()

	// Root endpoint with API info
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"name":"scholar","version":"%s","docs":"/docs"}`, version)
	})

	// Documentation routes
	docsRouter := apiServer.DocsRouter("/docs/openapi.json")
	router.Mount("/docs", docsRouter.Routes())

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Create standalone server for custom router
	server := api.NewServer(addr, cfg.CORSOrigins(), slogger)
	server.Router().Mount("/", router)

	go func() {
		<-sigChan
		slogger.Info("shutting down server")
		cancel()
		if err := server.Shutdown(ctx); err != nil {
			slogger.Error("shutdown error", "error", err)
		}
	}()

	slogger.Info("starting server", "addr", addr)
	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return cfg.Apply(opts...)
}
