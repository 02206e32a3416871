package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/meract/middlewares"
	"github.com/dmitrymomot/meract/pkg/config"
	"github.com/dmitrymomot/meract/pkg/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "meract",
		Short: "meract example server and tools",
		Long: `meract serves the example application on a raw socket server (serve),
under net/http (http) or under fasthttp (fasthttp), and runs storage
maintenance (migrate, sweep).

Settings come from the YAML file given with --config, .env and the
environment (MERACT_PORT, STORAGE_DRIVER, SESSION_SECRET, ...).`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")

	load := func() (*config.Config, *slog.Logger, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, nil, err
		}
		return cfg, newLogger(cfg), nil
	}

	root.AddCommand(
		newServeCmd(load),
		newHTTPCmd(load),
		newFastHTTPCmd(load),
		newRoutesCmd(load),
		newMigrateCmd(load),
		newSweepCmd(load),
	)
	return root
}

type loader func() (*config.Config, *slog.Logger, error)

func newLogger(cfg *config.Config) *slog.Logger {
	level, _ := logger.ParseLevelStrict(cfg.Log.Level)
	sentryCfg := cfg.Log.SentryConfig
	sentryCfg.MinLevel = level

	return logger.NewWithSentry(sentryCfg,
		logger.WithLevel(level),
		logger.WithFormat(logger.Format(cfg.Log.Format)),
		logger.WithOutput(os.Stderr),
		logger.WithExtractors(middlewares.RequestIDExtractor()),
	)
}
