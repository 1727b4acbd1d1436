// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading functions accept context.Context as the first parameter.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the backend: memory or postgres.
	Store string `koanf:"store"`

	// PostgresDSN is the connection string used when Store is postgres.
	PostgresDSN string `koanf:"postgres_dsn"`

	// PostgresMaxConns caps the connection pool.
	PostgresMaxConns int `koanf:"postgres_max_conns"`

	// MigrateOnStart applies schema migrations before serving.
	MigrateOnStart bool `koanf:"migrate_on_start"`

	// JWTSecret verifies HS256 bearer tokens.
	JWTSecret string `koanf:"jwt_secret"`

	// JWTIssuer, when set, must match the token's iss claim.
	JWTIssuer string `koanf:"jwt_issuer"`

	// DefaultPageSize applies to searches that omit pageSize.
	DefaultPageSize int `koanf:"default_page_size"`

	// PurchaseAttempts bounds retries of a purchase that lost a concurrent commit.
	PurchaseAttempts int `koanf:"purchase_attempts"`

	// DedupeSize sets the size of the idempotency key cache.
	DedupeSize int `koanf:"dedupe_size"`

	// SeedTeams is the number of starting teams (team-001, ...) created at start-up.
	SeedTeams int `koanf:"seed_teams"`

	// RateLimitRPS and RateLimitBurst bound requests per principal. Zero disables the limit.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// DedupeTTL forgets idempotency keys older than this. Zero keeps them until evicted.
	DedupeTTL time.Duration `koanf:"dedupe_ttl"`

	// MetricsEnabled turns metric collection on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace and MetricsPrefix shape every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsPrefix    string `koanf:"metrics_prefix"`

	// MetricsLabels are constant labels added to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsBuckets overrides the latency histogram buckets, in milliseconds.
	MetricsBuckets []float64 `koanf:"metrics_buckets"`

	// MetricsRefreshInterval sets how often gauges are refreshed.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		Store:            StoreMemory,
		PostgresMaxConns: 16,
		JWTSecret:        "squadmarket-dev-secret",
		DefaultPageSize:  10,
		PurchaseAttempts: 3,
		DedupeSize:       100_000,
		DedupeTTL:        24 * time.Hour,
		SeedTeams:        4,
		RateLimitRPS:     50,
		RateLimitBurst:   100,
		ShutdownTimeout:  10 * time.Second,

		MetricsEnabled:         true,
		MetricsNamespace:       "squadmarket",
		MetricsRefreshInterval: 10 * time.Second,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Store != StoreMemory && c.Store != StorePostgres:
		return fmt.Errorf("%w: store must be %q or %q, got %q", ErrInvalidConfig, StoreMemory, StorePostgres, c.Store)
	case c.Store == StorePostgres && c.PostgresDSN == "":
		return fmt.Errorf("%w: postgres_dsn is required for the postgres store", ErrInvalidConfig)
	case c.JWTSecret == "":
		return fmt.Errorf("%w: jwt_secret must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json", ErrInvalidConfig)
	case c.DefaultPageSize <= 0:
		return fmt.Errorf("%w: default_page_size must be positive", ErrInvalidConfig)
	case c.PurchaseAttempts <= 0:
		return fmt.Errorf("%w: purchase_attempts must be positive", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	case c.DedupeTTL < 0:
		return fmt.Errorf("%w: dedupe_ttl must not be negative", ErrInvalidConfig)
	case c.MetricsRefreshInterval <= 0:
		return fmt.Errorf("%w: metrics_refresh_interval must be positive", ErrInvalidConfig)
	case c.SeedTeams < 0:
		return fmt.Errorf("%w: seed_teams must not be negative", ErrInvalidConfig)
	case c.RateLimitRPS < 0 || c.RateLimitBurst < 0:
		return fmt.Errorf("%w: rate limits must not be negative", ErrInvalidConfig)
	}
	return nil
}

// SeedTeamIDs returns the ids of the teams seeded at start-up.
func (c *Config) SeedTeamIDs() []string {
	ids := make([]string, c.SeedTeams)
	for i := range ids {
		ids[i] = fmt.Sprintf("team-%03d", i+1)
	}
	return ids
}

// Redacted returns a copy safe to log.
func (c *Config) Redacted() Config {
	out := *c
	if out.JWTSecret != "" {
		out.JWTSecret = "***"
	}
	if i := strings.Index(out.PostgresDSN, "@"); i >= 0 {
		out.PostgresDSN = "***" + out.PostgresDSN[i:]
	}
	return out
}
