// Package loader writes a normalized activity set to every configured destination.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"example.com/runlog/internal/config"
	"example.com/runlog/internal/domain"
	"example.com/runlog/internal/logging"
	"example.com/runlog/internal/observability"
)

// Target is one destination database.
type Target interface {
	Name() string
	EnsureSchema(ctx context.Context) error
	// Replace makes the activities table contain exactly rows.
	Replace(ctx context.Context, rows []domain.Activity) error
	// Merge upserts rows by id without removing other rows.
	Merge(ctx context.Context, rows []domain.Activity) error
	Close() error
}

// Opener connects to a configured destination.
type Opener func(ctx context.Context, target config.Target) (Target, error)

// TargetResult is the outcome for one destination.
type TargetResult struct {
	Name     string
	Rows     int
	Err      error
	Duration time.Duration
}

// Result summarises a load across destinations.
type Result struct {
	Skipped    bool // no records, nothing opened
	Duplicates int  // records dropped because an earlier record had the same id
	Targets    []TargetResult
}

// Failed returns the destinations that did not load.
func (r Result) Failed() []TargetResult {
	var out []TargetResult
	for _, t := range r.Targets {
		if t.Err != nil {
			out = append(out, t)
		}
	}
	return out
}

// Err joins every destination failure, or nil.
func (r Result) Err() error {
	var errs []error
	for _, t := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", t.Name, t.Err))
	}
	return errors.Join(errs...)
}

// Loader fans a record set out to destinations, isolating failures per destination.
type Loader struct {
	targets []config.Target
	open    Opener
	mode    string
	logger  zerolog.Logger
	now     func() time.Time
}

// Option customises the Loader.
type Option func(*Loader)

// WithLogger overrides the loader logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithMode selects config.LoadModeReplace or config.LoadModeMerge.
func WithMode(mode string) Option {
	return func(l *Loader) {
		l.mode = mode
	}
}

// New constructs a Loader over targets in order.
func New(targets []config.Target, open Opener, opts ...Option) *Loader {
	l := &Loader{
		targets: targets,
		open:    open,
		mode:    config.LoadModeReplace,
		logger:  logging.Component("loader"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load writes records to each destination in turn. An empty record set opens
// nothing. Repeated ids keep their first occurrence. A failing destination is
// logged and recorded; the rest still load.
func (l *Loader) Load(ctx context.Context, records []domain.Activity) Result {
	if len(records) == 0 {
		l.logger.Warn().Msg("no activities to load, leaving destinations untouched")
		return Result{Skipped: true}
	}

	rows, dropped := dedupe(records)
	if dropped > 0 {
		l.logger.Warn().Int("duplicates", dropped).Int("rows", len(rows)).Msg("dropped activities with repeated ids")
		observability.RecordDuplicates(dropped)
	}

	result := Result{Duplicates: dropped, Targets: make([]TargetResult, 0, len(l.targets))}
	for _, target := range l.targets {
		started := l.now()
		err := l.loadOne(ctx, target, rows)
		res := TargetResult{Name: target.Name, Rows: len(rows), Err: err, Duration: l.now().Sub(started)}
		if err != nil {
			res.Rows = 0
			l.logger.Error().Err(err).Str("target", target.Name).Msg("failed to load activities")
		} else {
			l.logger.Info().
				Str("target", target.Name).
				Str("mode", l.mode).
				Int("rows", res.Rows).
				Dur("duration", res.Duration).
				Msg("activities loaded")
		}
		observability.RecordTargetLoad(target.Name, res.Rows, err, l.now())
		result.Targets = append(result.Targets, res)
	}
	return result
}

// dedupe prepares records for writing, keeping the first record seen for each id.
// Listing pages can shift between requests, so the same activity may arrive twice.
func dedupe(records []domain.Activity) ([]domain.Activity, int) {
	seen := make(map[int64]struct{}, len(records))
	rows := make([]domain.Activity, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.ID]; ok {
			continue
		}
		seen[rec.ID] = struct{}{}
		rows = append(rows, domain.Prepare(rec))
	}
	return rows, len(records) - len(rows)
}

func (l *Loader) loadOne(ctx context.Context, target config.Target, rows []domain.Activity) (err error) {
	dest, err := l.open(ctx, target)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() {
		if cerr := dest.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close: %w", cerr)
		}
	}()

	if err = dest.EnsureSchema(ctx); err != nil {
		return err
	}
	if l.mode == config.LoadModeMerge {
		return dest.Merge(ctx, rows)
	}
	return dest.Replace(ctx, rows)
}
