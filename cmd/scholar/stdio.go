package main

import (
	"fmt"
	"os"

	"github.com/helixml/scholar"
	"github.com/helixml/scholar/internal/config"
	"github.com/helixml/scholar/internal/log"
	"github.com/helixml/scholar/internal/mcp"
	"github.com/spf13/cobra"
)

func stdioCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "stdio",
		Short: "Start MCP server on stdio",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

This allows AI assistants to search the abstract corpus directly.
Configuration is loaded from environment variables and .env file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStdio(envFile)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")

	return cmd
}

func runStdio(envFile string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if err := cfg.EnsureIndexDir(); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	// Stdout carries the MCP protocol, so logs go to stderr.
	logger := log.NewLoggerWithWriter(os.Stderr, cfg.LogFormat(), cfg.LogLevel())
	slogger := logger.Slog()

	slogger.Info("starting MCP server",
		"version", version,
		"data_dir", cfg.DataDir(),
	)

	opts := clientOptions(cfg)
	opts = append(opts,
		scholar.WithDataDir(cfg.DataDir()),
		scholar.WithLogger(logger),
	)

	client, err := scholar.New(opts...)
	if err != nil {
		return fmt.Errorf("create scholar client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close scholar client", "error", err)
		}
	}()

	mcpServer := mcp.NewServer(client.Search, version, slogger)

	return mcpServer.ServeStdio()
}
