// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the nasa-ads CLI, which searches the
// NASA Astrophysics Data System and exports paper metadata as CSV, JSON,
// BibTeX, or CSL-YAML.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/nasa-ads/internal/config"
	"github.com/pdiddy/nasa-ads/internal/logging"
	"github.com/pdiddy/nasa-ads/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// appConfig and logger are resolved once per invocation in
// PersistentPreRunE and shared by every subcommand.
var (
	appConfig *types.Config
	logger    = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "nasa-ads",
	Short: "Query and export astronomy paper metadata from NASA ADS",
	Long: `nasa-ads searches the NASA Astrophysics Data System and exports the
matching papers as CSV, JSON, BibTeX, or CSL-YAML.

Configuration comes from flags, NASA_ADS_* environment variables (a .env
file is loaded first), ./nasa_ads.yaml or ~/.config/nasa-ads/config.yaml,
and .secrets/ads-api-key, in that order.`,
	Example: `  nasa-ads search "supernova" --output results.csv
  nasa-ads search "gravitational waves" --year-min 2020 --year-max 2024
  nasa-ads search "dark matter" --author "Smith" --format json
  nasa-ads fetch "exoplanet" --max-papers 500 --workers 4 -o exoplanets.csv`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "YAML config file (default: ./nasa_ads.yaml or ~/.config/nasa-ads/config.yaml)")
	pf.String("api-key", "", "NASA ADS API key (overrides environment and config file)")
	pf.String("log-level", "", "log level: DEBUG, INFO, WARNING, ERROR (default INFO)")
	pf.String("log-format", "", "console log format: console or json")
	pf.String("log-file", "", "also write JSON logs to this file, rotated")
}

// setup resolves configuration and builds the logger.
func setup(cmd *cobra.Command, _ []string) error {
	pf := cmd.Flags()
	cfgFile, _ := pf.GetString("config")
	apiKey, _ := pf.GetString("api-key")
	level, _ := pf.GetString("log-level")
	logFormat, _ := pf.GetString("log-format")
	logFile, _ := pf.GetString("log-file")

	cfg, err := config.Load(config.Options{
		ConfigFile: cfgFile,
		Overrides: map[string]any{
			config.KeyAPIKey:    apiKey,
			config.KeyLogLevel:  level,
			config.KeyLogFormat: logFormat,
			config.KeyLogFile:   logFile,
		},
	})
	if err != nil {
		return err
	}

	l, err := logging.New(cfg.LogConfig, cmd.ErrOrStderr())
	if err != nil {
		return &config.Error{Err: err}
	}
	appConfig, logger = cfg, l
	if cfg.ConfigFile != "" {
		logger.Debug("using config file", zap.String("path", cfg.ConfigFile))
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	code := exitCode(ctx, err)
	stop()

	if err != nil {
		report(rootCmd.ErrOrStderr(), err, code)
	}
	_ = logger.Sync()
	os.Exit(code)
}
