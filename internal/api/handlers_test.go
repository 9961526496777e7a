package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"example.com/runlog/internal/dashboard"
)

type staticSource struct {
	runs []dashboard.Run
	err  error
}

func (s staticSource) Runs(context.Context) ([]dashboard.Run, error) {
	return s.runs, s.err
}

func fixedRuns() []dashboard.Run {
	pace := 8.0
	return []dashboard.Run{
		{ID: 1, Start: time.Date(2023, time.June, 3, 7, 0, 0, 0, time.UTC), Miles: 4, Pace: &pace},
		{ID: 2, Start: time.Date(2024, time.January, 2, 7, 0, 0, 0, time.UTC), Miles: 5, Pace: &pace},
		{ID: 3, Start: time.Date(2024, time.March, 9, 7, 0, 0, 0, time.UTC), Miles: 6, Pace: &pace},
	}
}

func newMux(source dashboard.RunSource) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(dashboard.NewService(source)).RegisterRoutes(mux)
	return mux
}

func TestSummaryAllTime(t *testing.T) {
	mux := newMux(staticSource{runs: fixedRuns()})

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/summary", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp SummaryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Metrics.TotalMiles != 15 {
		t.Fatalf("expected 15 total miles got %v", resp.Metrics.TotalMiles)
	}
	if resp.Metrics.AveragePaceLabel != "8:00 min/mi" {
		t.Fatalf("unexpected pace label %q", resp.Metrics.AveragePaceLabel)
	}
	if resp.Chart.Kind != string(dashboard.ChartYearly) || len(resp.Chart.Bars) != 2 {
		t.Fatalf("unexpected chart %+v", resp.Chart)
	}
}

func TestSummaryYearAndMonth(t *testing.T) {
	mux := newMux(staticSource{runs: fixedRuns()})

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/summary?year=2024&month=1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp SummaryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Year != 2024 || resp.Month != 1 || resp.Metrics.Runs != 1 {
		t.Fatalf("unexpected summary %+v", resp)
	}
	if resp.Chart.Kind != string(dashboard.ChartWeekly) {
		t.Fatalf("expected weekly chart got %s", resp.Chart.Kind)
	}
	if resp.Chart.Bars[0].Label != "Week of Jan 01" || resp.Chart.Bars[0].Miles != 5 {
		t.Fatalf("unexpected first bar %+v", resp.Chart.Bars[0])
	}
}

func TestSummaryRejectsBadParams(t *testing.T) {
	mux := newMux(staticSource{runs: fixedRuns()})

	for _, target := range []string{"/v1/runs/summary?year=abc", "/v1/runs/summary?month=13"} {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", target, rr.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode error: %v", err)
		}
		if body["type"] != "validation_failed" {
			t.Fatalf("%s: unexpected error type %q", target, body["type"])
		}
	}
}

func TestSummarySourceFailure(t *testing.T) {
	mux := newMux(staticSource{err: errors.New("connection refused")})

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/summary", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", rr.Code)
	}
}

func TestFilters(t *testing.T) {
	mux := newMux(staticSource{runs: fixedRuns()})

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/filters?year=2024", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp FiltersResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Years) != 2 || resp.Years[0] != 2024 {
		t.Fatalf("unexpected years %v", resp.Years)
	}
	if len(resp.Months) != 2 || resp.Months[0].Name != "January" || resp.Months[1].Number != 3 {
		t.Fatalf("unexpected months %+v", resp.Months)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newMux(staticSource{})

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/runs/summary", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}

func TestHealthz(t *testing.T) {
	rr := httptest.NewRecorder()
	newMux(staticSource{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("unexpected healthz response %d %q", rr.Code, rr.Body.String())
	}
}
