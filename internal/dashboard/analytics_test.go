package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func pace(v float64) *float64 { return &v }

func run(date string, miles float64, p *float64) Run {
	start, ok := ParseStart(date)
	if !ok {
		panic("bad test date " + date)
	}
	return Run{Start: start, Miles: miles, Pace: p}
}

func sampleRuns() []Run {
	return []Run{
		run("2022-01-15T08:00:00Z", 1.0, pace(10.0)),
		run("2023-12-30T08:00:00Z", 4.0, pace(9.0)),
		run("2024-01-01T07:00:00Z", 3.0, pace(8.0)),
		run("2024-01-02T07:00:00Z", 5.0, pace(7.0)),
		run("2024-01-31T18:30:00Z", 2.0, nil),
		run("2024-03-10T09:00:00Z", 6.0, pace(8.5)),
	}
}

func labels(bars []Bar) []string {
	out := make([]string, len(bars))
	for i, b := range bars {
		out[i] = b.Label
	}
	return out
}

func miles(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Miles
	}
	return out
}

func TestMetricsAllTime(t *testing.T) {
	m := Summarize(sampleRuns(), Filter{}).Metrics

	require.Equal(t, 21.0, m.TotalMiles)
	require.Equal(t, 6, m.Runs)
	require.NotNil(t, m.AveragePace)
	require.InDelta(t, 156.0/21.0, *m.AveragePace, 1e-9)
	require.Equal(t, "7:25 min/mi", m.AveragePaceLabel)
	require.Equal(t, 5, m.ActiveWeeks)
	require.Equal(t, 4.2, m.WeeklyAverage)
	require.Equal(t, 6, m.ActiveDays)
	require.Equal(t, 3.5, m.MilesPerActiveDay)
}

func TestMetricsEmptySelection(t *testing.T) {
	m := Summarize(sampleRuns(), Filter{Year: 2024, Month: 2}).Metrics
	require.Zero(t, m.TotalMiles)
	require.Zero(t, m.Runs)
	require.Nil(t, m.AveragePace)
	require.Equal(t, "N/A", m.AveragePaceLabel)
	require.Zero(t, m.WeeklyAverage)
	require.Zero(t, m.MilesPerActiveDay)
}

func TestFormatPace(t *testing.T) {
	require.Equal(t, "7:54 min/mi", FormatPace(pace(7.9)))
	require.Equal(t, "8:00 min/mi", FormatPace(pace(8)))
	require.Equal(t, "N/A", FormatPace(nil))
}

func TestYearlyChartZeroFillsGaps(t *testing.T) {
	runs := append(sampleRuns(), run("2019-06-01T08:00:00Z", 2.5, nil))
	chart := BuildChart(runs, Filter{})

	require.Equal(t, ChartYearly, chart.Kind)
	require.Equal(t, []string{"2019", "2020", "2021", "2022", "2023", "2024"}, labels(chart.Bars))
	require.Equal(t, []float64{2.5, 0, 0, 1, 4, 16}, miles(chart.Bars))
}

func TestMonthlyChartForYear(t *testing.T) {
	summary := Summarize(sampleRuns(), Filter{Year: 2024})

	require.Equal(t, ChartMonthly, summary.Chart.Kind)
	require.Equal(t, "Monthly Mileage for 2024", summary.Chart.Title)
	require.Equal(t, []string{"Jan", "Feb", "Mar"}, labels(summary.Chart.Bars))
	require.Equal(t, []float64{10, 0, 6}, miles(summary.Chart.Bars))
	require.Equal(t, 16.0, summary.Metrics.TotalMiles)
}

func TestWeeklyChartCoversOverlappingWeeks(t *testing.T) {
	chart := BuildChart(sampleRuns(), Filter{Year: 2023, Month: 12})

	require.Equal(t, ChartWeekly, chart.Kind)
	require.Equal(t, "Weekly Mileage for December 2023", chart.Title)
	require.Equal(t, []string{
		"Week of Nov 27",
		"Week of Dec 04",
		"Week of Dec 11",
		"Week of Dec 18",
		"Week of Dec 25",
	}, labels(chart.Bars))
	require.Equal(t, []float64{0, 0, 0, 0, 4}, miles(chart.Bars))

	for _, bar := range chart.Bars {
		require.Equal(t, time.Monday, bar.Start.Weekday())
	}
}

func TestWeeklyChartSumsWholeWeek(t *testing.T) {
	runs := append(sampleRuns(), run("2024-02-03T08:00:00Z", 1.5, nil))
	chart := BuildChart(runs, Filter{Year: 2024, Month: 1})

	require.Equal(t, []string{
		"Week of Jan 01",
		"Week of Jan 08",
		"Week of Jan 15",
		"Week of Jan 22",
		"Week of Jan 29",
	}, labels(chart.Bars))
	require.Equal(t, []float64{8, 0, 0, 0, 3.5}, miles(chart.Bars))
}

func TestMonthByYearChart(t *testing.T) {
	summary := Summarize(sampleRuns(), Filter{Month: 1})

	require.Equal(t, ChartMonthByYear, summary.Chart.Kind)
	require.Equal(t, "January Mileage by Year", summary.Chart.Title)
	require.Equal(t, []string{"2022", "2024"}, labels(summary.Chart.Bars))
	require.Equal(t, []float64{1, 10}, miles(summary.Chart.Bars))
	require.Equal(t, 4, summary.Metrics.Runs)
}

func TestOptions(t *testing.T) {
	all := Options(sampleRuns(), 0)
	require.Equal(t, []int{2024, 2023, 2022}, all.Years)
	require.Equal(t, []int{1, 3, 12}, all.Months)

	year := Options(sampleRuns(), 2024)
	require.Equal(t, []int{2024, 2023, 2022}, year.Years)
	require.Equal(t, []int{1, 3}, year.Months)

	empty := Options(nil, 0)
	require.Empty(t, empty.Years)
	require.Empty(t, empty.Months)
}

func TestRecordRun(t *testing.T) {
	date := "2024-05-04T06:30:00Z"
	dist := 3.1
	r, ok := Record{ID: 9, StartDateLocal: &date, DistanceMiles: &dist}.Run()
	require.True(t, ok)
	require.Equal(t, int64(9), r.ID)
	require.Equal(t, 2024, r.Start.Year())
	require.Equal(t, 6, r.Start.Hour())
	require.Equal(t, 3.1, r.Miles)

	r, ok = Record{ID: 10, StartDateLocal: &date}.Run()
	require.True(t, ok)
	require.Zero(t, r.Miles)

	bad := "yesterday"
	_, ok = Record{StartDateLocal: &bad}.Run()
	require.False(t, ok)
	_, ok = Record{}.Run()
	require.False(t, ok)
}

type stubSource struct {
	runs []Run
	err  error
}

func (s stubSource) Runs(context.Context) ([]Run, error) { return s.runs, s.err }

func TestServiceValidatesFilter(t *testing.T) {
	svc := NewService(stubSource{runs: sampleRuns()}, WithLogger(zerolog.Nop()))

	_, err := svc.Summary(context.Background(), Filter{Year: 2024, Month: 13})
	require.ErrorIs(t, err, ErrInvalidFilter)
	_, err = svc.Filters(context.Background(), -1)
	require.ErrorIs(t, err, ErrInvalidFilter)

	summary, err := svc.Summary(context.Background(), Filter{Year: 2024, Month: 3})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Metrics.Runs)
	require.Equal(t, "8:30 min/mi", summary.Metrics.AveragePaceLabel)
}

func TestServiceSourceError(t *testing.T) {
	svc := NewService(stubSource{err: errors.New("connection refused")}, WithLogger(zerolog.Nop()))
	_, err := svc.Summary(context.Background(), Filter{})
	require.ErrorContains(t, err, "connection refused")
}
