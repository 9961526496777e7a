// Package api exposes HTTP handlers for the run dashboard.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"example.com/runlog/internal/dashboard"
)

// Service is the dashboard query surface the handlers need.
type Service interface {
	Summary(ctx context.Context, f dashboard.Filter) (dashboard.Summary, error)
	Filters(ctx context.Context, year int) (dashboard.FilterOptions, error)
}

// Handler coordinates HTTP requests with the dashboard service.
type Handler struct {
	service Service
}

// NewHandler builds a Handler.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/runs/summary", h.summary)
	mux.HandleFunc("/v1/runs/filters", h.filters)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	year, err := intParam(r, "year")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "year must be an integer")
		return
	}
	month, err := intParam(r, "month")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "month must be an integer")
		return
	}

	summary, err := h.service.Summary(r.Context(), dashboard.Filter{Year: year, Month: month})
	if err != nil {
		if errors.Is(err, dashboard.ErrInvalidFilter) {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

func (h *Handler) filters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	year, err := intParam(r, "year")
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "year must be an integer")
		return
	}

	opts, err := h.service.Filters(r.Context(), year)
	if err != nil {
		if errors.Is(err, dashboard.ErrInvalidFilter) {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	resp := FiltersResponse{Years: opts.Years, Months: make([]MonthOption, 0, len(opts.Months))}
	for _, m := range opts.Months {
		resp.Months = append(resp.Months, MonthOption{Number: m, Name: time.Month(m).String()})
	}
	writeJSON(w, http.StatusOK, resp)
}

// intParam reads an optional integer query parameter. Empty, "all" and
// "all time" map to 0.
func intParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	switch strings.ToLower(raw) {
	case "", "all", "all time":
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// SummaryResponse is the body for GET /v1/runs/summary.
type SummaryResponse struct {
	Year    int         `json:"year,omitempty"`
	Month   int         `json:"month,omitempty"`
	Metrics MetricsView `json:"metrics"`
	Chart   ChartView   `json:"chart"`
}

// MetricsView exposes the headline numbers.
type MetricsView struct {
	TotalMiles        float64  `json:"total_miles"`
	Runs              int      `json:"runs"`
	AveragePace       *float64 `json:"average_pace_min_per_mile"`
	AveragePaceLabel  string   `json:"average_pace"`
	ActiveWeeks       int      `json:"active_weeks"`
	WeeklyAverage     float64  `json:"weekly_average_miles"`
	ActiveDays        int      `json:"active_days"`
	MilesPerActiveDay float64  `json:"miles_per_active_day"`
}

// ChartView is an ordered bar series.
type ChartView struct {
	Kind  string    `json:"kind"`
	Title string    `json:"title"`
	Bars  []BarView `json:"bars"`
}

// BarView is one chart bar.
type BarView struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	Miles float64   `json:"miles"`
}

// FiltersResponse is the body for GET /v1/runs/filters.
type FiltersResponse struct {
	Years  []int         `json:"years"`
	Months []MonthOption `json:"months"`
}

// MonthOption pairs a month number with its name.
type MonthOption struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

func toSummaryResponse(s dashboard.Summary) SummaryResponse {
	m := s.Metrics
	resp := SummaryResponse{
		Year:  s.Filter.Year,
		Month: s.Filter.Month,
		Metrics: MetricsView{
			TotalMiles:        m.TotalMiles,
			Runs:              m.Runs,
			AveragePace:       m.AveragePace,
			AveragePaceLabel:  m.AveragePaceLabel,
			ActiveWeeks:       m.ActiveWeeks,
			WeeklyAverage:     m.WeeklyAverage,
			ActiveDays:        m.ActiveDays,
			MilesPerActiveDay: m.MilesPerActiveDay,
		},
		Chart: ChartView{
			Kind:  string(s.Chart.Kind),
			Title: s.Chart.Title,
			Bars:  make([]BarView, 0, len(s.Chart.Bars)),
		},
	}
	for _, b := range s.Chart.Bars {
		resp.Chart.Bars = append(resp.Chart.Bars, BarView{Label: b.Label, Start: b.Start, Miles: b.Miles})
	}
	return resp
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
