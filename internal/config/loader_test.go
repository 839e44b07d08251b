package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/matchengine/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.BatchSize, convey.ShouldEqual, 50)
				convey.So(cfg.SweepCap, convey.ShouldEqual, 20)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("MATCH_ADDR", ":8080")
			_ = os.Setenv("MATCH_BATCH_SIZE", "25")
			_ = os.Setenv("MATCH_CRON_SECRET", "s3cret")
			_ = os.Setenv("MATCH_RECOMPUTE_INTERVAL", "10m")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.BatchSize, convey.ShouldEqual, 25)
				convey.So(cfg.CronSecret, convey.ShouldEqual, "s3cret")
				convey.So(cfg.RecomputeInterval, convey.ShouldEqual, 10*time.Minute)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			yamlContent := `
addr: ":9090"
sweep_cap: 15
max_attempts: 3
signal_weights:
  skills: 0.5
`
			tmpFile := createTempFile(t, "config.yaml", yamlContent)
			_ = os.Setenv("MATCH_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values land on top of defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.SweepCap, convey.ShouldEqual, 15)
				convey.So(cfg.MaxAttempts, convey.ShouldEqual, 3)
				convey.So(cfg.SignalWeights["skills"], convey.ShouldEqual, 0.5)
				convey.So(cfg.SignalWeights["hours"], convey.ShouldEqual, 0.25)
			})

			convey.Convey("And env vars still win over the file", func() {
				_ = os.Setenv("MATCH_ADDR", ":7070")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.SweepCap, convey.ShouldEqual, 15)
			})
		})

		convey.Convey("When a .env file is given", func() {
			tmpFile := createTempFile(t, "match.env", "MATCH_JWT_SECRET=from-dotenv\nMATCH_BATCH_SIZE=30\n")
			_ = os.Setenv("MATCH_ENV_FILE", tmpFile)
			_ = os.Setenv("MATCH_BATCH_SIZE", "40")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it fills gaps but never overrides the environment", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.JWTSecret, convey.ShouldEqual, "from-dotenv")
				convey.So(cfg.BatchSize, convey.ShouldEqual, 40)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempFile(t, "bad.yaml", `invalid: yaml: content: [`)
			_ = os.Setenv("MATCH_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("MATCH_CONFIG", "/non/existent/config.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When env produces an invalid config", func() {
			_ = os.Setenv("MATCH_SWEEP_CAP", "0")

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				key := kv[:i]
				if len(key) >= len(config.EnvPrefix) && key[:len(config.EnvPrefix)] == config.EnvPrefix {
					_ = os.Unsetenv(key)
				}
				break
			}
		}
	}
}

func createTempFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
