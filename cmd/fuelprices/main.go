// Package main provides the entry point for the fuel price service CLI.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuelprices/internal/config"
	"github.com/andygrunwald/fuelprices/internal/logging"
)

var (
	// Version is set at build time.
	Version = "dev"
	// Commit is set at build time.
	Commit = "none"
	// BuildDate is set at build time.
	BuildDate = "unknown"
)

// globalFlags override values of the loaded configuration when set.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
	httpAddr   string
}

var (
	flags globalFlags
	cfg   *config.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fuelprices",
		Short: "Fuel prices - Danish pump prices with history and change alerts",
		Long: `Fuel prices fetches the pump price history of unleaded 95, octane 100
and diesel, keeps it in a durable cold store and serves fast lookups from
a tiered hot store.

Features:
  - Hourly fetch and reconcile with price revision tracking
  - Lookup API with Danish and English answers
  - Discord and Telegram notifications on price changes
  - CSV and PNG export of the price history
  - Prometheus metrics and status endpoints`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			if cmd.Flags().Changed("log-level") {
				loaded.Logging.Level = flags.logLevel
			}
			if cmd.Flags().Changed("log-format") {
				loaded.Logging.Format = flags.logFormat
			}
			if cmd.Flags().Changed("http-addr") {
				loaded.HTTP.Addr = flags.httpAddr
			}
			cfg = loaded
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to a YAML config file (default ./config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "json", "Log format (json, console)")
	rootCmd.PersistentFlags().StringVar(&flags.httpAddr, "http-addr", ":8080", "HTTP server address")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(lookupCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(subscribeCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func setupLogger() zerolog.Logger {
	return logging.NewLogger(cfg.Logging)
}
