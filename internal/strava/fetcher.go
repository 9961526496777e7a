package strava

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"example.com/runlog/internal/config"
	"example.com/runlog/internal/domain"
	"example.com/runlog/internal/observability"
)

// StopReason explains why pagination ended.
type StopReason string

const (
	StopEmptyPage StopReason = "empty_page"
	StopStatus    StopReason = "non_success_status"
	StopTransport StopReason = "transport_error"
	StopDecode    StopReason = "decode_error"
)

// PageSize is the per_page value sent with every listing request.
const PageSize = 100

// maxErrorPayload bounds how much of an error body is kept for logs.
const maxErrorPayload = 4 << 10

// FetchResult is the fully materialized output of a listing walk.
type FetchResult struct {
	Activities []domain.Activity
	Pages      int // pages requested, including the terminating one
	Skipped    int // raw records without a usable id
	Nulled     int // fields present but coerced to NULL
	Stopped    StopReason
	StopDetail string
}

// Partial reports whether pagination ended on something other than an empty page.
func (r FetchResult) Partial() bool {
	return r.Stopped != StopEmptyPage
}

// Fetcher walks the authenticated athlete's activity listing.
type Fetcher struct {
	activitiesURL string
	limiter       *rate.Limiter
	opts          options
}

// NewFetcher constructs a Fetcher. A positive cfg.RequestsPerSecond spaces page requests.
func NewFetcher(cfg config.StravaConfig, opts ...Option) *Fetcher {
	f := &Fetcher{
		activitiesURL: cfg.ActivitiesURL,
		opts:          buildOptions(cfg, opts),
	}
	if cfg.RequestsPerSecond > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return f
}

// FetchAll requests pages 1..n until an empty page or a failed page. A failed page
// ends the walk without an error and the activities collected so far are returned.
// The only error returned is context cancellation.
func (f *Fetcher) FetchAll(ctx context.Context, accessToken string) (FetchResult, error) {
	base := context.WithValue(ctx, oauth2.HTTPClient, f.opts.httpClient)
	client := oauth2.NewClient(base, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))
	client.Timeout = f.opts.httpClient.Timeout

	var result FetchResult
	for page := 1; ; page++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return result, err
			}
		}

		result.Pages++
		raws, stop, detail := f.fetchPage(ctx, client, page)
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if stop != "" {
			result.Stopped, result.StopDetail = stop, detail
			if stop == StopEmptyPage {
				observability.RecordPage("empty")
			} else {
				observability.RecordPage("error")
				f.opts.logger.Error().
					Int("page", page).
					Str("reason", string(stop)).
					Str("detail", detail).
					Int("collected", len(result.Activities)).
					Msg("error fetching activities, continuing with partial results")
			}
			break
		}
		observability.RecordPage("ok")

		normalized, skipped := 0, 0
		for _, raw := range raws {
			activity, nulled, err := domain.Normalize(raw)
			result.Nulled += len(nulled)
			observability.RecordNulledFields(nulled)
			if err != nil {
				skipped++
				f.opts.logger.Warn().Int("page", page).Interface("id", raw["id"]).Err(err).Msg("skipping activity")
				continue
			}
			if len(nulled) > 0 {
				f.opts.logger.Debug().Int64("activity_id", activity.ID).Strs("fields", nulled).Msg("malformed fields stored as null")
			}
			result.Activities = append(result.Activities, activity)
			normalized++
		}
		result.Skipped += skipped
		observability.RecordActivities(normalized, skipped)
		f.opts.logger.Debug().Int("page", page).Int("activities", normalized).Msg("page fetched")
	}

	f.opts.logger.Info().
		Int("activities", len(result.Activities)).
		Int("pages", result.Pages).
		Int("skipped", result.Skipped).
		Int("nulled_fields", result.Nulled).
		Str("stopped", string(result.Stopped)).
		Msg("activity listing complete")
	return result, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, client *http.Client, page int) ([]domain.RawActivity, StopReason, string) {
	u, err := url.Parse(f.activitiesURL)
	if err != nil {
		return nil, StopTransport, err.Error()
	}
	q := u.Query()
	q.Set("per_page", strconv.Itoa(PageSize))
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, StopTransport, err.Error()
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, StopTransport, err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorPayload))
		return nil, StopStatus, fmt.Sprintf("status %d: %s", resp.StatusCode, body)
	}

	var raws []domain.RawActivity
	if err := json.NewDecoder(resp.Body).Decode(&raws); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, StopEmptyPage, ""
		}
		return nil, StopDecode, err.Error()
	}
	if len(raws) == 0 {
		return nil, StopEmptyPage, ""
	}
	return raws, "", ""
}
