// Package bootstrap builds a Service from configuration. Both the HTTP server
// and the one-shot recompute command use it.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/okian/matchengine/internal/adapters/mq/queue"
	"github.com/okian/matchengine/internal/adapters/repository"
	"github.com/okian/matchengine/internal/adapters/repository/postgres"
	"github.com/okian/matchengine/internal/adapters/repository/rediscache"
	service "github.com/okian/matchengine/internal/app"
	"github.com/okian/matchengine/internal/config"
	"github.com/okian/matchengine/internal/domain/model"
	"github.com/okian/matchengine/internal/domain/types"
	"github.com/okian/matchengine/pkg/logger"
)

// Components is a built Service and the resources backing it.
type Components struct {
	Service *service.Service
	Backend string

	conn  *postgres.Connection
	redis *redis.Client
}

// Ready pings the database and Redis when they are configured.
func (c *Components) Ready(ctx context.Context) error {
	if c.conn != nil {
		if err := c.conn.Ping(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if c.redis != nil {
		if err := c.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close releases database and cache connections.
func (c *Components) Close() {
	if c.redis != nil {
		_ = c.redis.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// Build connects the configured backends and constructs the Service.
// Without a database URL it runs on in-memory adapters seeded with reference data.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger, extra ...service.Option) (*Components, error) {
	clock := types.SystemClock{}
	c := &Components{}

	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithClock(clock),
		service.WithBatchSize(cfg.BatchSize),
		service.WithSweepCap(cfg.SweepCap),
		service.WithDefaultPriority(cfg.DefaultPriority),
		service.WithBaselineHours(cfg.BaselineHours),
		service.WithSignalWeights(cfg.SignalWeights),
		service.WithWindowWeeks(cfg.DefaultWindowWeeks, cfg.MaxWindowWeeks),
		service.WithRecomputeInterval(cfg.RecomputeInterval),
	}

	var durable repository.ScoreCache
	if cfg.DatabaseURL != "" {
		conn, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		c.conn = conn

		applied, err := postgres.NewMigrator(conn).Migrate(ctx)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		log.Info(ctx, "database schema is up to date", logger.Int("applied", applied))

		store := postgres.NewStore(conn, clock)
		durable = store
		c.Backend = "postgres"
		opts = append(opts,
			service.WithStore(store),
			service.WithQueue(queue.NewPostgresQueue(conn, cfg.MaxAttempts, clock)),
			service.WithTransactor(txUnit{conn: conn, maxAttempts: cfg.MaxAttempts, clock: clock}),
		)
	} else {
		store := repository.NewMemoryStore(
			repository.WithClock(clock),
			repository.WithSportSeasons(ReferenceSeasons()...),
			repository.WithAcademicCalendars(ReferenceCalendars(clock.Now().Year())...),
		)
		durable = store
		c.Backend = "memory"
		opts = append(opts,
			service.WithStore(store),
			service.WithQueue(queue.NewInMemoryQueue(
				queue.WithClock(clock),
				queue.WithMaxAttempts(cfg.MaxAttempts),
			)),
		)
	}

	if cfg.RedisURL != "" {
		client, err := rediscache.Dial(ctx, cfg.RedisURL)
		if err != nil {
			// The durable cache still serves every read.
			log.Warn(ctx, "redis unavailable, score cache runs without it", logger.Error(err))
		} else {
			c.redis = client
			opts = append(opts, service.WithScoreCache(
				rediscache.New(client, durable, rediscache.WithTTL(cfg.ScoreCacheTTL)),
			))
		}
	}

	c.Service = service.New(append(opts, extra...)...)
	log.Info(ctx, "match engine components built",
		logger.String("backend", c.Backend),
		logger.Bool("redis", c.redis != nil),
	)
	return c, nil
}

// txUnit binds a Postgres store and queue to one transaction.
type txUnit struct {
	conn        *postgres.Connection
	maxAttempts int
	clock       types.Clock
}

func (u txUnit) InTx(ctx context.Context, fn func(repository.Store, queue.Queue) error) error {
	return u.conn.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(postgres.NewStore(tx, u.clock), queue.NewPostgresQueue(tx, u.maxAttempts, u.clock))
	})
}

// ReferenceSeasons is the sport season reference data used by in-memory runs.
func ReferenceSeasons() []model.SportSeason {
	return []model.SportSeason{
		{ID: "soccer-fall", Sport: "Soccer", SeasonType: model.InSeason, StartMonth: time.August, EndMonth: time.November,
			PracticeHoursPerWeek: 10, CompetitionHoursPerWeek: 5, TravelDaysPerMonth: 2, Intensity: 4},
		{ID: "soccer-spring", Sport: "Soccer", SeasonType: model.OffSeason, StartMonth: time.January, EndMonth: time.April,
			PracticeHoursPerWeek: 4, Intensity: 2},
		{ID: "basketball", Sport: "Basketball", SeasonType: model.InSeason, StartMonth: time.November, EndMonth: time.March,
			PracticeHoursPerWeek: 12, CompetitionHoursPerWeek: 6, TravelDaysPerMonth: 4, Intensity: 5},
		{ID: "track", Sport: "Track", SeasonType: model.InSeason, StartMonth: time.March, EndMonth: time.May,
			PracticeHoursPerWeek: 8, CompetitionHoursPerWeek: 4, TravelDaysPerMonth: 2, Intensity: 3},
	}
}

// ReferenceCalendars is the academic calendar reference data for year.
func ReferenceCalendars(year int) []model.AcademicCalendar {
	d := func(m time.Month, day int) time.Time { return time.Date(year, m, day, 0, 0, 0, 0, time.UTC) }
	return []model.AcademicCalendar{
		{ID: fmt.Sprintf("spring-%d", year), TermName: fmt.Sprintf("Spring %d", year), TermType: "semester", StartDate: d(time.January, 13), EndDate: d(time.May, 2)},
		{ID: fmt.Sprintf("finals-spring-%d", year), TermName: "Spring finals", TermType: "exams", StartDate: d(time.May, 5), EndDate: d(time.May, 16)},
		{ID: fmt.Sprintf("summer-%d", year), TermName: "Summer break", TermType: "break", StartDate: d(time.May, 17), EndDate: d(time.August, 24)},
		{ID: fmt.Sprintf("fall-%d", year), TermName: fmt.Sprintf("Fall %d", year), TermType: "semester", StartDate: d(time.August, 25), EndDate: d(time.December, 12)},
	}
}
