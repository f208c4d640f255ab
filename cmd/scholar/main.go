// Package main is the entry point for the scholar CLI.
//
//	@title		Scholar API
//	@version	1.0
//	@description	Semantic search over conference abstracts, authors, and categories
//	@host		localhost:8080
//	@BasePath	/api/v1
package main

import (
	"fmt"
	"os"

	"github.com/helixml/scholar/internal/config"
	"github.com/spf13/cobra"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scholar",
		Short: "Scholar abstract search server",
		Long:  `Scholar indexes conference abstracts and their authors and serves semantic keyword search, similar-author lookup, and category browsing over HTTP and MCP.`,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(stdioCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
