// Package config defines service configuration and its loading layers.
//
// Values are resolved from defaults, then an optional YAML file named by
// GUESSR_CONFIG, then GUESSR_* environment variables.
package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Store drivers accepted by StoreDriver.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	StoreDriver string `koanf:"store_driver"`
	SQLitePath  string `koanf:"sqlite_path"`
	PostgresDSN string `koanf:"postgres_dsn"`

	// SyncQueueSize bounds the profile sync queue; SyncWorkers is both the
	// worker count and the number of per-user shards.
	SyncQueueSize int `koanf:"sync_queue_size"`
	SyncWorkers   int `koanf:"sync_workers"`

	// DedupeSize bounds the purchase idempotency and auth event caches.
	DedupeSize int `koanf:"dedupe_size"`

	HintCost            int `koanf:"hint_cost"`
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// ProfileLoadTimeoutMS caps how long a sign-in waits for the profile store.
	ProfileLoadTimeoutMS int `koanf:"profile_load_timeout_ms"`

	JWTSecret             string `koanf:"jwt_secret"`
	AccessTokenTTLMinutes int    `koanf:"access_token_ttl_minutes"`
	SessionCacheTTLHours  int    `koanf:"session_cache_ttl_hours"`
	SecureCookies         bool   `koanf:"secure_cookies"`

	// Metrics naming. MetricsEnv, when set, becomes an env label on every
	// series. MetricsBucketsMS is a comma separated list of latency bounds.
	MetricsNamespace      string `koanf:"metrics_namespace"`
	MetricsPrefix         string `koanf:"metrics_prefix"`
	MetricsEnv            string `koanf:"metrics_env"`
	MetricsRefreshSeconds int    `koanf:"metrics_refresh_seconds"`
	MetricsBucketsMS      string `koanf:"metrics_buckets_ms"`

	// CORSAllowedOrigins is a comma separated origin list.
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"`

	OAuthGoogleClientID     string `koanf:"oauth_google_client_id"`
	OAuthGoogleClientSecret string `koanf:"oauth_google_client_secret"`
	OAuthGoogleRedirectURL  string `koanf:"oauth_google_redirect_url"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		StoreDriver:           DriverMemory,
		SQLitePath:            "guessr.db",
		SyncQueueSize:         10_000,
		SyncWorkers:           runtime.NumCPU(),
		DedupeSize:            100_000,
		HintCost:              100,
		MaxLeaderboardLimit:   100,
		ProfileLoadTimeoutMS:  10_000,
		JWTSecret:             "change-me",
		AccessTokenTTLMinutes: 60,
		SessionCacheTTLHours:  7 * 24,
		MetricsNamespace:      "guessr",
		MetricsRefreshSeconds: 10,
		MetricsBucketsMS:      "1,2.5,5,10,25,50,100,250,500,1000,2500,10000",
		CORSAllowedOrigins:    "*",
	}
}

// ProfileLoadTimeout returns ProfileLoadTimeoutMS as a duration.
func (c *Config) ProfileLoadTimeout() time.Duration {
	return time.Duration(c.ProfileLoadTimeoutMS) * time.Millisecond
}

// AccessTokenTTL returns AccessTokenTTLMinutes as a duration.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLMinutes) * time.Minute
}

// SessionCacheTTL returns SessionCacheTTLHours as a duration.
func (c *Config) SessionCacheTTL() time.Duration {
	return time.Duration(c.SessionCacheTTLHours) * time.Hour
}

// MetricsRefresh returns MetricsRefreshSeconds as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshSeconds) * time.Second
}

// LatencyBuckets parses MetricsBucketsMS. Bounds must be positive and
// strictly increasing.
func (c *Config) LatencyBuckets() ([]float64, error) {
	var out []float64
	for _, f := range strings.Split(c.MetricsBucketsMS, ",") {
		if f = strings.TrimSpace(f); f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: metrics_buckets_ms: %w", ErrInvalidConfig, err)
		}
		if v <= 0 || (len(out) > 0 && v <= out[len(out)-1]) {
			return nil, fmt.Errorf("%w: metrics_buckets_ms must be positive and increasing", ErrInvalidConfig)
		}
		out = append(out, v)
	}
	return out, nil
}

// MetricsLabels returns the constant labels attached to every series.
func (c *Config) MetricsLabels() map[string]string {
	if c.MetricsEnv == "" {
		return nil
	}
	return map[string]string{"env": c.MetricsEnv}
}

// AllowedOrigins splits CORSAllowedOrigins, dropping blanks.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// OAuthEnabled reports whether Google sign-in is configured.
func (c *Config) OAuthEnabled() bool {
	return c.OAuthGoogleClientID != "" && c.OAuthGoogleClientSecret != ""
}

// Validate checks the values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.HintCost <= 0:
		return fmt.Errorf("%w: hint_cost must be positive", ErrInvalidConfig)
	case c.JWTSecret == "":
		return fmt.Errorf("%w: jwt_secret must not be empty", ErrInvalidConfig)
	case c.SyncQueueSize <= 0 || c.SyncWorkers <= 0:
		return fmt.Errorf("%w: sync_queue_size and sync_workers must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	case c.ProfileLoadTimeoutMS <= 0:
		return fmt.Errorf("%w: profile_load_timeout_ms must be positive", ErrInvalidConfig)
	case c.MetricsRefreshSeconds <= 0:
		return fmt.Errorf("%w: metrics_refresh_seconds must be positive", ErrInvalidConfig)
	}
	if _, err := c.LatencyBuckets(); err != nil {
		return err
	}

	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path is required for the sqlite driver", ErrInvalidConfig)
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}
