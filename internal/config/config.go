// Package config loads runtime configuration from the environment and rule
// definitions from TOML files.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"campaign-signal-lab/internal/features"
)

// Config holds runtime settings for the ingest and refresh commands.
// Persistence DSNs are optional: when empty the commands run on in-memory
// stores, which is the fixture/demo mode.
type Config struct {
	// AccountID scopes ingestion checkpoints.
	AccountID string `validate:"required"`

	// PostgresDSN is the raw row + checkpoint database. Empty selects the
	// in-memory store.
	PostgresDSN string

	// ClickHouseDSN is the analytics database for daily, feature and signal
	// tables. Empty selects the in-memory stores.
	ClickHouseDSN string

	// RulesPath points to a TOML rule table; empty uses the built-in rules.
	RulesPath string

	// MinHistoryDays is the per-campaign history floor for feature rows.
	MinHistoryDays int `validate:"gte=1"`

	// Schedule is a cron expression for periodic refresh; empty runs once.
	Schedule string

	// MetricsAddr is the Prometheus listen address; empty disables the
	// metrics endpoint.
	MetricsAddr string
}

// Load reads configuration from the environment, after loading an optional
// .env file. A missing .env is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AccountID:      getEnv("CSL_ACCOUNT_ID", "default"),
		PostgresDSN:    os.Getenv("CSL_POSTGRES_DSN"),
		ClickHouseDSN:  os.Getenv("CSL_CLICKHOUSE_DSN"),
		RulesPath:      os.Getenv("CSL_RULES_PATH"),
		MinHistoryDays: features.DefaultMinHistoryDays,
		Schedule:       os.Getenv("CSL_REFRESH_SCHEDULE"),
		MetricsAddr:    os.Getenv("CSL_METRICS_ADDR"),
	}

	if v := os.Getenv("CSL_MIN_HISTORY_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse CSL_MIN_HISTORY_DAYS: %w", err)
		}
		cfg.MinHistoryDays = n
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
