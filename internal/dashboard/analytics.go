package dashboard

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"example.com/runlog/internal/domain"
)

// Filter narrows the runs considered. Zero means all for either field.
type Filter struct {
	Year  int
	Month int
}

// AllTime reports whether no year is selected.
func (f Filter) AllTime() bool { return f.Year == 0 }

// AllMonths reports whether no month is selected.
func (f Filter) AllMonths() bool { return f.Month == 0 }

func (f Filter) match(r Run) bool {
	if f.Year != 0 && r.Start.Year() != f.Year {
		return false
	}
	if f.Month != 0 && int(r.Start.Month()) != f.Month {
		return false
	}
	return true
}

// Metrics are the headline numbers for a filtered set of runs.
type Metrics struct {
	TotalMiles        float64
	Runs              int
	AveragePace       *float64 // distance-weighted min/mile
	AveragePaceLabel  string
	ActiveWeeks       int
	WeeklyAverage     float64
	ActiveDays        int
	MilesPerActiveDay float64
}

// ChartKind names which series a filter combination produces.
type ChartKind string

const (
	ChartYearly      ChartKind = "yearly"
	ChartMonthly     ChartKind = "monthly"
	ChartWeekly      ChartKind = "weekly"
	ChartMonthByYear ChartKind = "month_by_year"
)

// Bar is one labelled chart value.
type Bar struct {
	Label string
	Start time.Time
	Miles float64
}

// Chart is an ordered mileage series.
type Chart struct {
	Kind  ChartKind
	Title string
	Bars  []Bar
}

// Summary bundles metrics and the chart for a filter.
type Summary struct {
	Filter  Filter
	Metrics Metrics
	Chart   Chart
}

// FilterOptions lists the selectable years and months.
type FilterOptions struct {
	Years  []int // descending
	Months []int // ascending, for the selected year or all time
}

// Summarize computes the summary for f over every stored run.
func Summarize(runs []Run, f Filter) Summary {
	selected := make([]Run, 0, len(runs))
	for _, r := range runs {
		if f.match(r) {
			selected = append(selected, r)
		}
	}
	return Summary{
		Filter:  f,
		Metrics: ComputeMetrics(selected),
		Chart:   BuildChart(runs, f),
	}
}

// ComputeMetrics derives the headline numbers from already filtered runs.
func ComputeMetrics(runs []Run) Metrics {
	var m Metrics
	var weighted float64
	weeks := make(map[time.Time]struct{})
	days := make(map[time.Time]struct{})
	for _, r := range runs {
		m.TotalMiles += r.Miles
		if r.Pace != nil && !math.IsNaN(*r.Pace) {
			weighted += *r.Pace * r.Miles
		}
		weeks[weekStart(r.Start)] = struct{}{}
		days[dayOf(r.Start)] = struct{}{}
	}
	m.Runs = len(runs)
	m.ActiveWeeks = len(weeks)
	m.ActiveDays = len(days)

	if m.TotalMiles > 0 {
		pace := weighted / m.TotalMiles
		m.AveragePace = &pace
	}
	m.AveragePaceLabel = FormatPace(m.AveragePace)
	if m.ActiveWeeks > 0 {
		m.WeeklyAverage = domain.Round2(m.TotalMiles / float64(m.ActiveWeeks))
	}
	if m.ActiveDays > 0 {
		m.MilesPerActiveDay = domain.Round2(m.TotalMiles / float64(m.ActiveDays))
	}
	m.TotalMiles = domain.Round2(m.TotalMiles)
	return m
}

// FormatPace renders min/mile as "m:ss min/mi", truncating seconds, or "N/A".
func FormatPace(pace *float64) string {
	if pace == nil || math.IsNaN(*pace) || math.IsInf(*pace, 0) {
		return "N/A"
	}
	minutes := int(*pace)
	seconds := int((*pace - float64(minutes)) * 60)
	return fmt.Sprintf("%d:%02d min/mi", minutes, seconds)
}

// BuildChart selects the series for the filter combination.
func BuildChart(runs []Run, f Filter) Chart {
	switch {
	case f.AllTime() && f.AllMonths():
		return Chart{Kind: ChartYearly, Title: "Yearly Mileage", Bars: yearlyBars(runs)}
	case f.AllMonths():
		return Chart{Kind: ChartMonthly, Title: fmt.Sprintf("Monthly Mileage for %d", f.Year), Bars: monthlyBars(runs, f.Year)}
	case !f.AllTime():
		return Chart{Kind: ChartWeekly, Title: fmt.Sprintf("Weekly Mileage for %s %d", time.Month(f.Month), f.Year), Bars: weeklyBars(runs, f.Year, time.Month(f.Month))}
	default:
		return Chart{Kind: ChartMonthByYear, Title: fmt.Sprintf("%s Mileage by Year", time.Month(f.Month)), Bars: monthByYearBars(runs, time.Month(f.Month))}
	}
}

// yearlyBars covers every year from the first run to the last, zero-filled.
func yearlyBars(runs []Run) []Bar {
	if len(runs) == 0 {
		return []Bar{}
	}
	totals := make(map[int]float64)
	first, last := runs[0].Start.Year(), runs[0].Start.Year()
	for _, r := range runs {
		y := r.Start.Year()
		totals[y] += r.Miles
		first, last = min(first, y), max(last, y)
	}
	bars := make([]Bar, 0, last-first+1)
	for y := first; y <= last; y++ {
		bars = append(bars, Bar{
			Label: strconv.Itoa(y),
			Start: time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC),
			Miles: domain.Round2(totals[y]),
		})
	}
	return bars
}

// monthlyBars covers the first through last active month of year, zero-filled.
func monthlyBars(runs []Run, year int) []Bar {
	totals := make(map[time.Month]float64)
	first, last := time.December+1, time.January-1
	for _, r := range runs {
		if r.Start.Year() != year {
			continue
		}
		m := r.Start.Month()
		totals[m] += r.Miles
		first, last = min(first, m), max(last, m)
	}
	if first > last {
		return []Bar{}
	}
	bars := make([]Bar, 0, int(last-first)+1)
	for m := first; m <= last; m++ {
		start := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
		bars = append(bars, Bar{Label: start.Format("Jan"), Start: start, Miles: domain.Round2(totals[m])})
	}
	return bars
}

// weeklyBars covers every Monday-start week overlapping the month. Each bar sums
// all runs in its week, including days that fall outside the month.
func weeklyBars(runs []Run, year int, month time.Month) []Bar {
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)

	totals := make(map[time.Time]float64)
	for _, r := range runs {
		totals[weekStart(r.Start)] += r.Miles
	}

	var bars []Bar
	for w := weekStart(monthStart); !w.After(monthEnd); w = w.AddDate(0, 0, 7) {
		bars = append(bars, Bar{Label: w.Format("Week of Jan 02"), Start: w, Miles: domain.Round2(totals[w])})
	}
	return bars
}

// monthByYearBars sums month's mileage per year, for years with runs in that month.
func monthByYearBars(runs []Run, month time.Month) []Bar {
	totals := make(map[int]float64)
	for _, r := range runs {
		if r.Start.Month() == month {
			totals[r.Start.Year()] += r.Miles
		}
	}
	years := make([]int, 0, len(totals))
	for y := range totals {
		years = append(years, y)
	}
	sort.Ints(years)

	bars := make([]Bar, 0, len(years))
	for _, y := range years {
		bars = append(bars, Bar{
			Label: strconv.Itoa(y),
			Start: time.Date(y, month, 1, 0, 0, 0, 0, time.UTC),
			Miles: domain.Round2(totals[y]),
		})
	}
	return bars
}

// Options lists years with runs (descending) and the months with runs in year.
func Options(runs []Run, year int) FilterOptions {
	years := make(map[int]struct{})
	months := make(map[int]struct{})
	for _, r := range runs {
		years[r.Start.Year()] = struct{}{}
		if year == 0 || r.Start.Year() == year {
			months[int(r.Start.Month())] = struct{}{}
		}
	}
	opts := FilterOptions{Years: make([]int, 0, len(years)), Months: make([]int, 0, len(months))}
	for y := range years {
		opts.Years = append(opts.Years, y)
	}
	for m := range months {
		opts.Months = append(opts.Months, m)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(opts.Years)))
	sort.Ints(opts.Months)
	return opts
}

func weekStart(t time.Time) time.Time {
	d := dayOf(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
