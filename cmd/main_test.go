package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/matchengine/internal/bootstrap"
	"github.com/okian/matchengine/internal/config"
	"github.com/okian/matchengine/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

func TestMainFunction(t *testing.T) {
	t.Setenv("MATCH_ADDR", ":8085")
	t.Setenv("MATCH_BATCH_SIZE", "25")
	t.Setenv("MATCH_CRON_SECRET", "s3cret")

	convey.Convey("Given the main application", t, func() {
		ctx := context.Background()

		convey.Convey("When loading configuration from the environment", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then overrides are applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8085")
				convey.So(cfg.BatchSize, convey.ShouldEqual, 25)
			})
		})

		convey.Convey("When building the router", func() {
			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldBeNil)
			components, err := bootstrap.Build(ctx, cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			defer components.Close()

			router := newRouter(ctx, cfg, components.Service, components.Ready)
			serve := func(method, path, bearer string) int {
				req := httptest.NewRequest(method, path, http.NoBody)
				if bearer != "" {
					req.Header.Set("Authorization", "Bearer "+bearer)
				}
				w := httptest.NewRecorder()
				router.ServeHTTP(w, req)
				return w.Code
			}

			convey.Convey("Then docs, metrics and stats are public", func() {
				convey.So(serve(http.MethodGet, "/openapi.yaml", ""), convey.ShouldEqual, http.StatusOK)
				convey.So(serve(http.MethodGet, "/api-docs", ""), convey.ShouldEqual, http.StatusOK)
				convey.So(serve(http.MethodGet, "/healthz", ""), convey.ShouldEqual, http.StatusOK)
				convey.So(serve(http.MethodGet, "/readyz", ""), convey.ShouldEqual, http.StatusOK)
				convey.So(serve(http.MethodGet, "/stats", ""), convey.ShouldEqual, http.StatusOK)
			})

			convey.Convey("Then the cron route uses the configured secret", func() {
				convey.So(serve(http.MethodPost, "/cron/recompute-matches", "wrong"), convey.ShouldEqual, http.StatusUnauthorized)
				convey.So(serve(http.MethodPost, "/cron/recompute-matches", "s3cret"), convey.ShouldEqual, http.StatusOK)
			})

			convey.Convey("Then student routes require a token", func() {
				convey.So(serve(http.MethodGet, "/match-engine/schedules", ""), convey.ShouldEqual, http.StatusUnauthorized)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When running the system metrics updater until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startSystemMetricsUpdater(ctx)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When updating system metrics", func() {
			convey.So(func() {
				updateSystemMetrics()
			}, convey.ShouldNotPanic)
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	t.Setenv("MATCH_BATCH_SIZE", "0")

	convey.Convey("Given an invalid batch size", t, func() {
		convey.Convey("Then configuration loading fails", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}
