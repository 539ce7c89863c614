// Package config provides configuration management for the EdgeCard pipeline.
package config

import (
	"strings"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	OddsAPI    OddsAPIConfig    `mapstructure:"odds_api" validate:"required"`
	Results    ResultsConfig    `mapstructure:"results" validate:"required"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler" validate:"required"`
	Settlement SettlementConfig `mapstructure:"settlement" validate:"required"`
	API        APIConfig        `mapstructure:"api" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Features   FeaturesConfig   `mapstructure:"features"`
	Sports     []SportConfig    `mapstructure:"sports" validate:"required,min=1,dive"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration.
// Path is a full PostgreSQL DSN; the DATABASE_PATH environment variable
// overrides it.
type DatabaseConfig struct {
	Path           string `mapstructure:"path" validate:"required"`
	MaxConnections int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MinConnections int    `mapstructure:"min_connections" validate:"gte=0"`
}

// OddsAPIConfig represents the odds provider configuration
type OddsAPIConfig struct {
	BaseURL         string  `mapstructure:"base_url" validate:"required,url"`
	APIKey          string  `mapstructure:"api_key" validate:"required"`
	Regions         string  `mapstructure:"regions" validate:"required"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries      int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec" validate:"gt=0"`
}

// ResultsConfig represents the results-source configuration
type ResultsConfig struct {
	BaseURL         string `mapstructure:"base_url" validate:"required,url"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds" validate:"gt=0"`
}

// SchedulerConfig represents the wall-clock dispatch loop configuration
type SchedulerConfig struct {
	Timezone           string `mapstructure:"timezone" validate:"required,timezone_name"`
	TickMS             int    `mapstructure:"tick_ms" validate:"required,gt=0"`
	FixedCatchup       bool   `mapstructure:"fixed_catchup"`
	ToleranceMinutes   int    `mapstructure:"tolerance_minutes" validate:"required,gt=0"`
	IdempotencyWindowH int    `mapstructure:"idempotency_window_hours" validate:"required,gt=0"`
	OrphanThresholdMin int    `mapstructure:"orphan_threshold_minutes" validate:"required,gt=0"`
}

// SettlementConfig represents the settlement engine configuration
type SettlementConfig struct {
	CadenceMinutes     int `mapstructure:"cadence_minutes" validate:"required,gt=0"`
	PostGameDelayMin   int `mapstructure:"post_game_delay_minutes" validate:"gte=0"`
	VoidAfterHours     int `mapstructure:"void_after_hours" validate:"required,gt=0"`
	LookbackHours      int `mapstructure:"lookback_hours" validate:"required,gt=0"`
	RecentSnapshotMins int `mapstructure:"recent_snapshot_minutes" validate:"required,gt=0"`
}

// APIConfig represents the read API server configuration
type APIConfig struct {
	Port             int `mapstructure:"port" validate:"required,min=1,max=65535"`
	HeartbeatSeconds int `mapstructure:"heartbeat_seconds" validate:"required,gt=0,lte=2"`
	ReadTimeoutSecs  int `mapstructure:"read_timeout_seconds" validate:"required,gt=0"`
	WriteTimeoutSecs int `mapstructure:"write_timeout_seconds" validate:"required,gt=0"`
	ShutdownTimeoutS int `mapstructure:"shutdown_timeout_seconds" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// FeaturesConfig represents feature flags
type FeaturesConfig struct {
	OddsPullEnabled bool `mapstructure:"odds_pull_enabled"`
	DryRun          bool `mapstructure:"dry_run"`
}

// SportConfig represents one sport's pipeline configuration
type SportConfig struct {
	Key           string   `mapstructure:"key" validate:"required,sportkey"`
	ProviderKey   string   `mapstructure:"provider_key" validate:"required"`
	Active        bool     `mapstructure:"active"`
	ModelEnabled  bool     `mapstructure:"model_enabled"`
	Markets       []string `mapstructure:"markets" validate:"required,min=1,dive,oneof=h2h spreads totals"`
	HoursAhead    int      `mapstructure:"hours_ahead" validate:"required,gt=0"`
	FixedWindows  []string `mapstructure:"fixed_windows" validate:"dive,fixedwindow"`
	TMinusWindows []int    `mapstructure:"tminus_windows" validate:"dive,gt=0"`
	SeasonStart   string   `mapstructure:"season_start" validate:"omitempty,monthday"`
	SeasonEnd     string   `mapstructure:"season_end" validate:"omitempty,monthday"`
	ModelVersion  string   `mapstructure:"model_version" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns the PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return c.Database.Path
}

// TickInterval returns the scheduler tick as a duration
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Scheduler.TickMS) * time.Millisecond
}

// Location resolves the configured timezone. Validation guarantees the
// name loads, so a resolution failure collapses to UTC here.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ActiveSports returns the sports whose ingest is active
func (c *Config) ActiveSports() []SportConfig {
	active := make([]SportConfig, 0, len(c.Sports))
	for _, s := range c.Sports {
		if s.Active {
			active = append(active, s)
		}
	}
	return active
}

// SportByKey returns the configuration for a sport key, if present
func (c *Config) SportByKey(key string) (SportConfig, bool) {
	key = strings.ToLower(key)
	for _, s := range c.Sports {
		if s.Key == key {
			return s, true
		}
	}
	return SportConfig{}, false
}

// InSeason reports whether the given date falls inside the sport's season.
// An unset season means always in season. Seasons may wrap the year end
// (e.g. NHL 10-01 .. 06-30).
func (s *SportConfig) InSeason(date time.Time) bool {
	if s.SeasonStart == "" || s.SeasonEnd == "" {
		return true
	}
	md := date.Format("01-02")
	if s.SeasonStart <= s.SeasonEnd {
		return md >= s.SeasonStart && md <= s.SeasonEnd
	}
	return md >= s.SeasonStart || md <= s.SeasonEnd
}
