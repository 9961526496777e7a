package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"example.com/runlog/internal/config"
	"example.com/runlog/internal/loader"
	"example.com/runlog/internal/logging"
	"example.com/runlog/internal/observability"
	"example.com/runlog/internal/persistence/target"
	"example.com/runlog/internal/pipeline"
	"example.com/runlog/internal/strava"
	"example.com/runlog/internal/tokenstore"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type flags struct {
	configPath string
	tokenFile  string
	strict     bool
	dryRun     bool
}

func newRootCmd() *cobra.Command {
	var f flags

	root := &cobra.Command{
		Use:           "ingest",
		Short:         "Refresh Strava tokens, fetch every activity and load the destinations",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}
	root.Flags().StringVar(&f.configPath, "config", "", "YAML config file (default: $CONFIG_PATH or ./runlog.yaml)")
	root.Flags().StringVar(&f.tokenFile, "token-file", "", "token store path, overrides TOKEN_FILE")
	root.Flags().BoolVar(&f.strict, "strict", false, "exit non-zero when any destination fails")
	root.Flags().BoolVar(&f.dryRun, "dry-run", false, "fetch and normalize without writing")
	return root
}

func run(parent context.Context, f flags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if f.tokenFile != "" {
		cfg.TokenFile = f.tokenFile
	}

	logger := logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err := cfg.ValidateIngest(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := tokenstore.NewFile(cfg.TokenFile)
	auth := strava.NewAuthenticator(cfg.Strava, store, strava.WithLogger(logging.Component("strava")))
	fetcher := strava.NewFetcher(cfg.Strava, strava.WithLogger(logging.Component("strava")))
	load := loader.New(cfg.Targets(), target.Opener(cfg.Load.ChunkSize),
		loader.WithMode(cfg.Load.Mode),
		loader.WithLogger(logging.Component("loader")),
	)

	p := pipeline.New(auth, fetcher, load,
		pipeline.WithDryRun(f.dryRun),
		pipeline.WithLogger(logging.Component("pipeline")),
	)

	report, runErr := p.Run(ctx)

	if cfg.Metrics.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := observability.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.JobName); err != nil {
			logger.Warn().Err(err).Msg("failed to push metrics")
		}
		cancel()
	}

	if runErr != nil {
		logger.Error().Err(runErr).Str("run_id", p.RunID()).Msg("ingest failed")
		return runErr
	}
	if f.strict {
		if err := report.Load.Err(); err != nil {
			return fmt.Errorf("destinations failed: %w", err)
		}
	}
	return nil
}
