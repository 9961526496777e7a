package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Load outcomes recorded per target.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	pagesFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runlog",
		Subsystem: "fetch",
		Name:      "pages_total",
		Help:      "Activity listing pages requested, labeled by response outcome.",
	}, []string{"outcome"})
	activitiesFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runlog",
		Subsystem: "fetch",
		Name:      "activities_total",
		Help:      "Activities normalized from the provider listing.",
	})
	activitiesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runlog",
		Subsystem: "fetch",
		Name:      "activities_skipped_total",
		Help:      "Raw activities dropped because they carried no usable id.",
	})
	fieldsCoerced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runlog",
		Subsystem: "fetch",
		Name:      "fields_nulled_total",
		Help:      "Raw fields that were present but could not be coerced and were stored as NULL.",
	}, []string{"field"})
	targetLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runlog",
		Subsystem: "load",
		Name:      "target_runs_total",
		Help:      "Load attempts per destination target, labeled by outcome.",
	}, []string{"target", "outcome"})
	rowsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runlog",
		Subsystem: "load",
		Name:      "rows_written_total",
		Help:      "Rows written per destination target.",
	}, []string{"target"})
	duplicatesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runlog",
		Subsystem: "load",
		Name:      "duplicates_dropped_total",
		Help:      "Activities dropped before loading because an earlier record carried the same id.",
	})
	lastLoadGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "runlog",
		Subsystem: "load",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful load per target.",
	}, []string{"target"})
)

func init() {
	prometheus.MustRegister(pagesFetched, activitiesFetched, activitiesSkipped, fieldsCoerced, targetLoads, rowsWritten, duplicatesDropped, lastLoadGauge)
}

// RecordPage counts one listing page with its outcome ("ok", "empty", "error").
func RecordPage(outcome string) {
	pagesFetched.WithLabelValues(outcome).Inc()
}

// RecordActivities counts normalized and skipped activities from one page.
func RecordActivities(normalized, skipped int) {
	activitiesFetched.Add(float64(normalized))
	activitiesSkipped.Add(float64(skipped))
}

// RecordNulledFields counts raw fields that were coerced to NULL.
func RecordNulledFields(fields []string) {
	for _, f := range fields {
		fieldsCoerced.WithLabelValues(f).Inc()
	}
}

// RecordDuplicates counts activities discarded as repeated ids.
func RecordDuplicates(n int) {
	duplicatesDropped.Add(float64(n))
}

// RecordTargetLoad records the outcome of loading one target.
func RecordTargetLoad(target string, rows int, err error, at time.Time) {
	if err != nil {
		targetLoads.WithLabelValues(target, OutcomeFailure).Inc()
		return
	}
	targetLoads.WithLabelValues(target, OutcomeSuccess).Inc()
	rowsWritten.WithLabelValues(target).Add(float64(rows))
	if !at.IsZero() {
		lastLoadGauge.WithLabelValues(target).Set(float64(at.Unix()))
	}
}

// Push replaces the job's metric group on a Pushgateway with the default registry.
// Each run overwrites the previous one, so the gateway holds one group per job.
func Push(ctx context.Context, url, job string) error {
	return push.New(url, job).
		Gatherer(prometheus.DefaultGatherer).
		PushContext(ctx)
}
