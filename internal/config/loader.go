package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment knobs read before any provider is loaded.
const (
	EnvPrefix     = "MATCH_"
	EnvConfigFile = "MATCH_CONFIG"
	EnvDotEnvFile = "MATCH_ENV_FILE"
	defaultDotEnv = ".env"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if MATCH_CONFIG is set
//  3. .env file (MATCH_ENV_FILE or ./.env), never overriding the real environment
//  4. env (prefix MATCH_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	// MATCH_BATCH_SIZE -> batch_size (flat keys, underscores preserved to match koanf tags)
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadDotEnv() error {
	path := os.Getenv(EnvDotEnvFile)
	explicit := path != ""
	if !explicit {
		path = defaultDotEnv
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
}

// Validate checks the invariants the engine relies on.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.BatchSize <= 0 || c.BatchSize > MaxBatchSize:
		return fmt.Errorf("%w: batch_size must be in 1..%d", ErrInvalidConfig, MaxBatchSize)
	case c.SweepCap <= 0:
		return fmt.Errorf("%w: sweep_cap must be positive", ErrInvalidConfig)
	case c.MaxAttempts < 0:
		return fmt.Errorf("%w: max_attempts must not be negative", ErrInvalidConfig)
	case c.BaselineHours < 0:
		return fmt.Errorf("%w: baseline_hours must not be negative", ErrInvalidConfig)
	case c.MaxWindowWeeks <= 0:
		return fmt.Errorf("%w: max_window_weeks must be positive", ErrInvalidConfig)
	case c.DefaultWindowWeeks <= 0 || c.DefaultWindowWeeks > c.MaxWindowWeeks:
		return fmt.Errorf("%w: default_window_weeks must be in 1..max_window_weeks", ErrInvalidConfig)
	case c.RecomputeInterval < 0:
		return fmt.Errorf("%w: recompute_interval must not be negative", ErrInvalidConfig)
	}
	for name, w := range c.SignalWeights {
		if w < 0 {
			return fmt.Errorf("%w: signal weight %q must not be negative", ErrInvalidConfig, name)
		}
	}
	return nil
}
