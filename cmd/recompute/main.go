// Command recompute drains the recompute queue once and exits. It is meant
// for schedulers that run a process instead of calling the cron route.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	service "github.com/okian/matchengine/internal/app"
	"github.com/okian/matchengine/internal/bootstrap"
	"github.com/okian/matchengine/internal/config"
	"github.com/okian/matchengine/pkg/logger"
)

type options struct {
	configFile string
	batchSize  int
	sweepCap   int
	drain      bool
	maxRuns    int
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "recompute: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	flagSet := pflag.NewFlagSet("recompute", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configFile, "config", "c", "", "YAML config file (overrides MATCH_CONFIG)")
	flagSet.IntVar(&opts.batchSize, "batch-size", 0, "items claimed per run (default from config)")
	flagSet.IntVar(&opts.sweepCap, "sweep-cap", 0, "stale pairs recomputed per sweep item (default from config)")
	flagSet.BoolVar(&opts.drain, "drain", false, "keep running batches until the queue is empty")
	flagSet.IntVar(&opts.maxRuns, "max-runs", 100, "upper bound on batches with --drain")
	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if opts.maxRuns < 1 {
		return options{}, errors.New("--max-runs must be positive")
	}
	if opts.batchSize < 0 || opts.batchSize > config.MaxBatchSize {
		return options{}, fmt.Errorf("--batch-size must be in 1..%d", config.MaxBatchSize)
	}
	return opts, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.configFile != "" {
		if err := os.Setenv(config.EnvConfigFile, opts.configFile); err != nil {
			return err
		}
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.InitWithFormat(cfg.LogFormat, os.Stderr); err != nil {
		return err
	}
	_ = logger.SetLevelString(cfg.LogLevel)
	log := logger.Get().Named("recompute")

	overrides := []service.Option{service.WithRecomputeInterval(0)}
	if opts.batchSize > 0 {
		overrides = append(overrides, service.WithBatchSize(opts.batchSize))
	}
	if opts.sweepCap > 0 {
		overrides = append(overrides, service.WithSweepCap(opts.sweepCap))
	}

	components, err := bootstrap.Build(ctx, cfg, log, overrides...)
	if err != nil {
		return err
	}
	defer components.Close()

	return drain(ctx, components.Service, opts, out)
}

// drain runs one batch, or batches until nothing is pending when opts.drain is set.
func drain(ctx context.Context, svc *service.Service, opts options, out io.Writer) error {
	enc := json.NewEncoder(out)
	for i := 0; i < opts.maxRuns; i++ {
		res, err := svc.RunBatch(ctx)
		if err != nil {
			return err
		}
		if err := enc.Encode(res); err != nil {
			return err
		}
		if !opts.drain || res.Remaining == 0 || res.Processed == 0 || ctx.Err() != nil {
			return nil
		}
	}
	return nil
}
