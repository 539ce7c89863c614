// Package config provides configuration management for the EdgeCard pipeline.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
// and then applies the bare-name environment contract (DATABASE_PATH,
// ODDS_API_KEY, TZ, TICK_MS, ENABLE_ODDS_PULL, ENABLE_<SPORT>_MODEL,
// FIXED_CATCHUP, DRY_RUN) on top.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	v.SetEnvPrefix("EDGECARD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	applyEnvContract(cfg)

	return cfg, nil
}

// LoadWithDefaults loads configuration with defaults when the file is absent.
func LoadWithDefaults(configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v.SetConfigType("yaml")
	v.SetEnvPrefix("EDGECARD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	applyEnvContract(cfg)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "edgecard")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("scheduler.timezone", "America/New_York")
	v.SetDefault("scheduler.tick_ms", 60000)
	v.SetDefault("scheduler.fixed_catchup", true)
	v.SetDefault("scheduler.tolerance_minutes", 5)
	v.SetDefault("scheduler.idempotency_window_hours", 1)
	v.SetDefault("scheduler.orphan_threshold_minutes", 30)
	v.SetDefault("settlement.cadence_minutes", 15)
	v.SetDefault("settlement.post_game_delay_minutes", 30)
	v.SetDefault("settlement.void_after_hours", 24)
	v.SetDefault("settlement.lookback_hours", 48)
	v.SetDefault("settlement.recent_snapshot_minutes", 180)
	v.SetDefault("api.heartbeat_seconds", 2)
	v.SetDefault("api.read_timeout_seconds", 5)
	v.SetDefault("api.write_timeout_seconds", 10)
	v.SetDefault("api.shutdown_timeout_seconds", 10)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("features.odds_pull_enabled", true)
	v.SetDefault("features.dry_run", false)
	v.SetDefault("odds_api.regions", "us")
	v.SetDefault("odds_api.timeout_seconds", 30)
	v.SetDefault("odds_api.max_retries", 3)
	v.SetDefault("odds_api.rate_limit_per_sec", 5.0)
	v.SetDefault("results.timeout_seconds", 30)
	v.SetDefault("results.cache_ttl_seconds", 60)
}

// applyEnvContract overlays the bare environment variable names that are
// contract for deployments, taking precedence over the YAML values.
func applyEnvContract(cfg *Config) {
	if val := os.Getenv("DATABASE_PATH"); val != "" {
		cfg.Database.Path = val
	}
	if val := os.Getenv("ODDS_API_KEY"); val != "" {
		cfg.OddsAPI.APIKey = val
	}
	if val := os.Getenv("TZ"); val != "" {
		cfg.Scheduler.Timezone = val
	}
	if val := os.Getenv("TICK_MS"); val != "" {
		if ms, err := strconv.Atoi(val); err == nil && ms > 0 {
			cfg.Scheduler.TickMS = ms
		}
	}
	if val := os.Getenv("ENABLE_ODDS_PULL"); val != "" {
		cfg.Features.OddsPullEnabled = parseBool(val)
	}
	if val := os.Getenv("FIXED_CATCHUP"); val != "" {
		cfg.Scheduler.FixedCatchup = parseBool(val)
	}
	if val := os.Getenv("DRY_RUN"); val != "" {
		cfg.Features.DryRun = parseBool(val)
	}
	for i := range cfg.Sports {
		envName := "ENABLE_" + strings.ToUpper(cfg.Sports[i].Key) + "_MODEL"
		if val := os.Getenv(envName); val != "" {
			cfg.Sports[i].ModelEnabled = parseBool(val)
		}
	}
}

func parseBool(val string) bool {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false
	}
	return b
}
