package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"example.com/runlog/internal/logging"
)

// ErrInvalidFilter is returned for a month outside 0..12 or a negative year.
var ErrInvalidFilter = errors.New("invalid filter")

// Service answers dashboard queries against a RunSource.
type Service struct {
	source RunSource
	logger zerolog.Logger
}

// Option customises the Service.
type Option func(*Service)

// WithLogger overrides the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService constructs a Service.
func NewService(source RunSource, opts ...Option) *Service {
	s := &Service{source: source, logger: logging.Component("dashboard")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Summary returns metrics and the chart for f.
func (s *Service) Summary(ctx context.Context, f Filter) (Summary, error) {
	if err := validate(f.Year, f.Month); err != nil {
		return Summary{}, err
	}
	runs, err := s.source.Runs(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("load runs: %w", err)
	}
	summary := Summarize(runs, f)
	s.logger.Debug().
		Int("year", f.Year).
		Int("month", f.Month).
		Int("runs", summary.Metrics.Runs).
		Str("chart", string(summary.Chart.Kind)).
		Msg("summary computed")
	return summary, nil
}

// Filters returns the selectable years and the months available for year.
func (s *Service) Filters(ctx context.Context, year int) (FilterOptions, error) {
	if err := validate(year, 0); err != nil {
		return FilterOptions{}, err
	}
	runs, err := s.source.Runs(ctx)
	if err != nil {
		return FilterOptions{}, fmt.Errorf("load runs: %w", err)
	}
	return Options(runs, year), nil
}

func validate(year, month int) error {
	if year < 0 {
		return fmt.Errorf("%w: year %d", ErrInvalidFilter, year)
	}
	if month < 0 || month > 12 {
		return fmt.Errorf("%w: month %d", ErrInvalidFilter, month)
	}
	return nil
}
