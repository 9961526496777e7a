// Package config centralises configuration parsing for the ingest job and the dashboard.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Load modes accepted by LoadConfig.Mode.
const (
	LoadModeReplace = "replace"
	LoadModeMerge   = "merge"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are searched in order when no explicit path is given.
var DefaultConfigPaths = []string{"runlog.yaml", "runlog.yml"}

// Config captures runtime configuration values.
type Config struct {
	Strava    StravaConfig    `koanf:"strava"`
	TokenFile string          `koanf:"token_file"`
	Database  DatabaseConfig  `koanf:"database"`
	Load      LoadConfig      `koanf:"load"`
	Dashboard DashboardConfig `koanf:"dashboard"`
	Logging   LoggingConfig   `koanf:"logging"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// StravaConfig holds provider credentials and endpoints.
type StravaConfig struct {
	ClientID          string        `koanf:"client_id"`
	ClientSecret      string        `koanf:"client_secret"`
	TokenURL          string        `koanf:"token_url"`
	ActivitiesURL     string        `koanf:"activities_url"`
	RequestsPerSecond float64       `koanf:"requests_per_second"` // 0 disables pacing.
	HTTPTimeout       time.Duration `koanf:"http_timeout"`
}

// DatabaseConfig lists destination connection strings. Every non-empty URL is one load target.
type DatabaseConfig struct {
	PrimaryURL string   `koanf:"primary_url"`
	NeonURL    string   `koanf:"neon_url"`
	ExtraURLs  []string `koanf:"extra_urls"`
}

// LoadConfig tunes how records are written to each target.
type LoadConfig struct {
	Mode      string `koanf:"mode"`
	ChunkSize int    `koanf:"chunk_size"`
}

// DashboardConfig configures the read-side HTTP API.
type DashboardConfig struct {
	HTTPAddress string `koanf:"http_address"`
	DatabaseURL string `koanf:"database_url"`
}

// LoggingConfig selects zerolog level and output format.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// MetricsConfig configures the optional Pushgateway used by the batch job.
type MetricsConfig struct {
	PushgatewayURL string `koanf:"pushgateway_url"`
	JobName        string `koanf:"job_name"`
}

// Target is a named destination database.
type Target struct {
	Name string
	URL  string
}

func defaultConfig() Config {
	return Config{
		Strava: StravaConfig{
			TokenURL:      "https://www.strava.com/oauth/token",
			ActivitiesURL: "https://www.strava.com/api/v3/athlete/activities",
			HTTPTimeout:   30 * time.Second,
		},
		TokenFile: "strava_tokens.json",
		Load: LoadConfig{
			Mode:      LoadModeReplace,
			ChunkSize: 500,
		},
		Dashboard: DashboardConfig{
			HTTPAddress: ":8080",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			JobName: "runlog_ingest",
		},
	}
}

var envMappings = map[string]string{
	"strava_client_id":           "strava.client_id",
	"strava_client_secret":       "strava.client_secret",
	"strava_token_url":           "strava.token_url",
	"strava_activities_url":      "strava.activities_url",
	"strava_requests_per_second": "strava.requests_per_second",
	"strava_http_timeout":        "strava.http_timeout",
	"token_file":                 "token_file",
	"database_url":               "database.primary_url",
	"database_url_neon":          "database.neon_url",
	"database_urls":              "database.extra_urls",
	"load_mode":                  "load.mode",
	"load_chunk_size":            "load.chunk_size",
	"http_address":               "dashboard.http_address",
	"dashboard_database_url":     "dashboard.database_url",
	"log_level":                  "logging.level",
	"log_format":                 "logging.format",
	"pushgateway_url":            "metrics.pushgateway_url",
	"pushgateway_job":            "metrics.job_name",
}

var sliceConfigPaths = []string{"database.extra_urls"}

// Load layers struct defaults, an optional YAML file and the process environment.
// An empty path searches CONFIG_PATH and DefaultConfigPaths.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	for _, key := range sliceConfigPaths {
		if raw, ok := k.Get(key).(string); ok {
			if err := k.Set(key, splitAndTrim(raw)); err != nil {
				return Config{}, fmt.Errorf("set %s: %w", key, err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// envTransform maps known variables onto config keys. Unknown and empty
// variables are dropped so they never mask defaults.
func envTransform(key, value string) (string, interface{}) {
	if value == "" {
		return "", nil
	}
	return envMappings[strings.ToLower(key)], value
}

func findConfigFile() string {
	if p, ok := os.LookupEnv(ConfigPathEnvVar); ok && p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Targets returns the configured destinations in load order.
func (c Config) Targets() []Target {
	var targets []Target
	if c.Database.PrimaryURL != "" {
		targets = append(targets, Target{Name: "primary", URL: c.Database.PrimaryURL})
	}
	if c.Database.NeonURL != "" {
		targets = append(targets, Target{Name: "neon", URL: c.Database.NeonURL})
	}
	for i, u := range c.Database.ExtraURLs {
		if u == "" {
			continue
		}
		targets = append(targets, Target{Name: fmt.Sprintf("extra-%d", i+1), URL: u})
	}
	return targets
}

// DashboardURL resolves the database the dashboard reads from.
func (c Config) DashboardURL() string {
	switch {
	case c.Dashboard.DatabaseURL != "":
		return c.Dashboard.DatabaseURL
	case c.Database.NeonURL != "":
		return c.Database.NeonURL
	default:
		return c.Database.PrimaryURL
	}
}

// ValidateIngest checks the values the ingest job cannot run without.
func (c Config) ValidateIngest() error {
	var errs []error
	if strings.TrimSpace(c.Strava.ClientID) == "" {
		errs = append(errs, errors.New("STRAVA_CLIENT_ID is required"))
	}
	if strings.TrimSpace(c.Strava.ClientSecret) == "" {
		errs = append(errs, errors.New("STRAVA_CLIENT_SECRET is required"))
	}
	if c.Strava.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("strava.requests_per_second must be >= 0"))
	}
	if _, err := url.ParseRequestURI(c.Strava.TokenURL); err != nil {
		errs = append(errs, fmt.Errorf("strava.token_url: %w", err))
	}
	if _, err := url.ParseRequestURI(c.Strava.ActivitiesURL); err != nil {
		errs = append(errs, fmt.Errorf("strava.activities_url: %w", err))
	}
	if strings.TrimSpace(c.TokenFile) == "" {
		errs = append(errs, errors.New("token_file is required"))
	}
	if len(c.Targets()) == 0 {
		errs = append(errs, errors.New("at least one of DATABASE_URL, DATABASE_URL_NEON, DATABASE_URLS is required"))
	}
	if c.Load.Mode != LoadModeReplace && c.Load.Mode != LoadModeMerge {
		errs = append(errs, fmt.Errorf("load.mode must be %q or %q, got %q", LoadModeReplace, LoadModeMerge, c.Load.Mode))
	}
	if c.Load.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("load.chunk_size must be > 0, got %d", c.Load.ChunkSize))
	}
	return errors.Join(errs...)
}

// ValidateDashboard checks the values the dashboard API cannot run without.
func (c Config) ValidateDashboard() error {
	var errs []error
	if c.DashboardURL() == "" {
		errs = append(errs, errors.New("one of DASHBOARD_DATABASE_URL, DATABASE_URL_NEON, DATABASE_URL is required"))
	}
	if strings.TrimSpace(c.Dashboard.HTTPAddress) == "" {
		errs = append(errs, errors.New("dashboard.http_address is required"))
	}
	return errors.Join(errs...)
}
