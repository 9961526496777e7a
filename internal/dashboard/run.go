// Package dashboard computes run summaries and chart series from the activities table.
package dashboard

import (
	"context"
	"strings"
	"time"
)

// RunsQuery selects the columns the dashboard needs for run activities.
const RunsQuery = "SELECT id, start_date_local, distance_miles, average_pace_min_per_mile FROM activities WHERE sport_type = 'Run'"

// Run is one running activity as the dashboard sees it.
type Run struct {
	ID    int64
	Start time.Time // local wall-clock start
	Miles float64   // 0 when unknown
	Pace  *float64  // min/mile, nil when unknown
}

// Record is a scanned RunsQuery row before date parsing.
type Record struct {
	ID             int64
	StartDateLocal *string
	DistanceMiles  *float64
	AveragePace    *float64
}

var startLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Run converts the record. Records without a parseable start date are dropped.
func (r Record) Run() (Run, bool) {
	if r.StartDateLocal == nil {
		return Run{}, false
	}
	start, ok := ParseStart(*r.StartDateLocal)
	if !ok {
		return Run{}, false
	}
	run := Run{ID: r.ID, Start: start, Pace: r.AveragePace}
	if r.DistanceMiles != nil {
		run.Miles = *r.DistanceMiles
	}
	return run, true
}

// ParseStart parses a provider local timestamp, keeping its wall-clock fields.
func ParseStart(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// RunSource supplies every stored run.
type RunSource interface {
	Runs(ctx context.Context) ([]Run, error)
}
