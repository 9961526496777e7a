// Package pipeline runs one ingest: refresh, fetch every page, load every destination.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"example.com/runlog/internal/domain"
	"example.com/runlog/internal/loader"
	"example.com/runlog/internal/logging"
	"example.com/runlog/internal/strava"
)

// Authenticator yields a fresh access token.
type Authenticator interface {
	Refresh(ctx context.Context) (string, error)
}

// Fetcher materializes the athlete's activities.
type Fetcher interface {
	FetchAll(ctx context.Context, accessToken string) (strava.FetchResult, error)
}

// Loader writes activities to the destinations.
type Loader interface {
	Load(ctx context.Context, records []domain.Activity) loader.Result
}

// Report describes a finished run.
type Report struct {
	RunID    string
	DryRun   bool
	Fetch    strava.FetchResult
	Load     loader.Result
	Duration time.Duration
}

// Pipeline wires the three stages in order.
type Pipeline struct {
	auth   Authenticator
	fetch  Fetcher
	load   Loader
	runID  string
	dryRun bool
	logger zerolog.Logger
}

// Option customises the Pipeline.
type Option func(*Pipeline)

// WithLogger overrides the pipeline logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		p.runID = id
	}
}

// WithDryRun fetches and normalizes but writes nothing.
func WithDryRun(dryRun bool) Option {
	return func(p *Pipeline) {
		p.dryRun = dryRun
	}
}

// New constructs a Pipeline.
func New(auth Authenticator, fetch Fetcher, load Loader, opts ...Option) *Pipeline {
	p := &Pipeline{
		auth:   auth,
		fetch:  fetch,
		load:   load,
		logger: logging.Component("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.runID == "" {
		p.runID = uuid.NewString()
	}
	p.logger = p.logger.With().Str("run_id", p.runID).Logger()
	return p
}

// RunID returns the identifier attached to logs and pushed metrics.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Run executes a single ingest. Authentication failures abort before any fetch.
// A partial fetch still loads what was collected. Destination failures are
// reported in Report.Load and do not produce an error.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	started := time.Now()
	report := Report{RunID: p.runID, DryRun: p.dryRun}
	p.logger.Info().Bool("dry_run", p.dryRun).Msg("ingest started")

	token, err := p.auth.Refresh(ctx)
	if err != nil {
		return report, fmt.Errorf("authenticate: %w", err)
	}

	report.Fetch, err = p.fetch.FetchAll(ctx, token)
	if err != nil {
		return report, fmt.Errorf("fetch activities: %w", err)
	}
	if report.Fetch.Partial() {
		p.logger.Warn().
			Str("reason", string(report.Fetch.Stopped)).
			Int("activities", len(report.Fetch.Activities)).
			Msg("listing ended early, loading partial results")
	}

	if p.dryRun {
		p.logger.Info().Int("activities", len(report.Fetch.Activities)).Msg("dry run, skipping load")
	} else {
		report.Load = p.load.Load(ctx, report.Fetch.Activities)
	}

	report.Duration = time.Since(started)
	p.logger.Info().
		Int("activities", len(report.Fetch.Activities)).
		Int("failed_targets", len(report.Load.Failed())).
		Int("duplicates", report.Load.Duplicates).
		Dur("duration", report.Duration).
		Msg("ingest finished")
	return report, nil
}
