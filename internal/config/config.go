// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Provide New() to build a Config with defaults.
//   - Load layers defaults, an optional YAML file, an optional .env file and
//     MATCH_ prefixed environment variables.
package config

import (
	"time"
)

// MaxBatchSize is the largest batch_size a worker run may claim.
const MaxBatchSize = 50

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabaseURL is a Postgres connection string. Empty uses in-memory stores.
	DatabaseURL string `koanf:"database_url"`

	// RedisURL enables the shared read-through score cache when set.
	RedisURL string `koanf:"redis_url"`

	// ScoreCacheTTL bounds how long a score lives in Redis.
	ScoreCacheTTL time.Duration `koanf:"score_cache_ttl"`

	// CronSecret authenticates the recompute trigger and internal invalidations.
	CronSecret string `koanf:"cron_secret"`

	// JWTSecret verifies HS256 student tokens.
	JWTSecret string `koanf:"jwt_secret"`

	// BatchSize caps the queue items claimed per worker run, 1..MaxBatchSize.
	BatchSize int `koanf:"batch_size"`

	// SweepCap caps the stale pairs recomputed per sweep item.
	SweepCap int `koanf:"sweep_cap"`

	// MaxAttempts moves an item to the dead state once reached. 0 disables the ceiling.
	MaxAttempts int `koanf:"max_attempts"`

	// DefaultPriority is used for invalidation-driven queue items.
	DefaultPriority int `koanf:"default_priority"`

	// RecomputeInterval runs the batch worker in-process when > 0.
	RecomputeInterval time.Duration `koanf:"recompute_interval"`

	// BaselineHours is the weekly availability when no override exists.
	BaselineHours float64 `koanf:"baseline_hours"`

	// DefaultWindowWeeks is the availability horizon for listings without dates.
	DefaultWindowWeeks int `koanf:"default_window_weeks"`

	// MaxWindowWeeks caps any availability range.
	MaxWindowWeeks int `koanf:"max_window_weeks"`

	// SignalWeights maps signal names to their relative weights.
	SignalWeights map[string]float64 `koanf:"signal_weights"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		ScoreCacheTTL:      24 * time.Hour,
		BatchSize:          50,
		SweepCap:           20,
		MaxAttempts:        10,
		DefaultPriority:    5,
		RecomputeInterval:  0,
		BaselineHours:      40,
		DefaultWindowWeeks: 4,
		MaxWindowWeeks:     52,
		SignalWeights: map[string]float64{
			"skills":       0.30,
			"hours":        0.25,
			"temporal":     0.15,
			"category":     0.10,
			"compensation": 0.10,
			"reputation":   0.10,
		},
	}
}
