// Package strava talks to the Strava API: refresh-token exchange and activity listing.
package strava

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"example.com/runlog/internal/config"
	"example.com/runlog/internal/logging"
	"example.com/runlog/internal/tokenstore"
)

var (
	// ErrMissingCredentials indicates the client id or secret is not configured.
	ErrMissingCredentials = errors.New("strava client id and secret are required")
	// ErrNoRefreshToken indicates the token store holds no refresh token; the app must be re-authorized.
	ErrNoRefreshToken = errors.New("no refresh token found, reauthorize the application")
)

// RefreshError is returned when the token endpoint rejects the refresh grant
// or answers without an access token.
type RefreshError struct {
	StatusCode int
	Payload    string
	Err        error
}

func (e *RefreshError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token refresh failed with status %d: %s", e.StatusCode, e.Payload)
	}
	return fmt.Sprintf("token refresh failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// TokenStore loads and persists the token pair.
type TokenStore interface {
	Load() (tokenstore.Pair, error)
	Save(tokenstore.Pair) error
}

// Option configures optional behaviour shared by Authenticator and Fetcher.
type Option func(*options)

type options struct {
	logger     zerolog.Logger
	httpClient *http.Client
}

// WithLogger overrides the logger used to report provider errors.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithHTTPClient overrides the HTTP client used for provider calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

func buildOptions(cfg config.StravaConfig, opts []Option) options {
	o := options{
		logger:     logging.Component("strava"),
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Authenticator exchanges the stored refresh token for a fresh access token.
type Authenticator struct {
	oauth oauth2.Config
	store TokenStore
	opts  options
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(cfg config.StravaConfig, store TokenStore, opts ...Option) *Authenticator {
	return &Authenticator{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store: store,
		opts:  buildOptions(cfg, opts),
	}
}

// Refresh performs a single refresh grant, persists the rotated pair and returns
// the new access token. It never retries.
func (a *Authenticator) Refresh(ctx context.Context) (string, error) {
	if a.oauth.ClientID == "" || a.oauth.ClientSecret == "" {
		return "", ErrMissingCredentials
	}

	pair, err := a.store.Load()
	if err != nil && !errors.Is(err, tokenstore.ErrNotFound) {
		return "", fmt.Errorf("load tokens: %w", err)
	}
	if pair.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}

	capture := &responseCapture{base: a.opts.httpClient.Transport}
	client := &http.Client{Timeout: a.opts.httpClient.Timeout, Transport: capture}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	token, err := a.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: pair.RefreshToken}).Token()
	if err != nil {
		refreshErr := &RefreshError{Err: err, StatusCode: capture.status, Payload: capture.payload()}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			refreshErr.Payload = truncate(retrieveErr.Body)
			if retrieveErr.Response != nil {
				refreshErr.StatusCode = retrieveErr.Response.StatusCode
			}
		}
		a.opts.logger.Error().
			Int("status", refreshErr.StatusCode).
			Str("payload", refreshErr.Payload).
			Err(err).
			Msg("error fetching access token")
		return "", refreshErr
	}

	rotated := tokenstore.Pair{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken}
	if rotated.RefreshToken == "" {
		rotated.RefreshToken = pair.RefreshToken
	}
	if err := a.store.Save(rotated); err != nil {
		return "", fmt.Errorf("save tokens: %w", err)
	}
	a.opts.logger.Info().Bool("refresh_token_rotated", rotated.RefreshToken != pair.RefreshToken).Msg("tokens saved")

	return token.AccessToken, nil
}

// responseCapture keeps the token endpoint's status and body so a 200 reply
// without an access token can still be reported with its payload.
type responseCapture struct {
	base   http.RoundTripper
	status int
	body   []byte
}

func (c *responseCapture) RoundTrip(req *http.Request) (*http.Response, error) {
	base := c.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	c.status, c.body = resp.StatusCode, body
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return resp, nil
}

func (c *responseCapture) payload() string {
	return truncate(c.body)
}

func truncate(body []byte) string {
	if len(body) > maxErrorPayload {
		body = body[:maxErrorPayload]
	}
	return string(body)
}
