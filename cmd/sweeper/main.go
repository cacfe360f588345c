// Command sweeper runs the scheduled sweeps once against the configured store.
// Cron it, e.g. every five minutes for escalation and hourly for batching.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/campusfix/dispatch/internal/app"
	"github.com/campusfix/dispatch/internal/config"
	"github.com/campusfix/dispatch/internal/models"
	"github.com/campusfix/dispatch/internal/service"
)

func main() {
	kind := flag.String("kind", "all", "sweep to run: escalation, batch, preventive or all")
	quiet := flag.Bool("quiet", false, "do not print the sweep results as JSON")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := app.Logger(cfg, "dispatch-sweeper")
	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is required; an in-memory store has nothing to sweep")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, cleanup, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start dispatch engine")
	}
	defer cleanup()

	sweeps, err := selectSweeps(engine, *kind)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	var (
		results []service.SweepResult
		failed  bool
	)
	for _, sw := range sweeps {
		res, err := sw.run(ctx)
		if err != nil {
			logger.Error().Err(err).Str("sweep", string(sw.kind)).Msg("sweep failed")
			failed = true
		}
		results = append(results, res)
	}

	if !*quiet {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(results)
	}
	if failed {
		cleanup()
		os.Exit(1)
	}
}

type sweep struct {
	kind models.SweepKind
	run  func(context.Context) (service.SweepResult, error)
}

func selectSweeps(e *service.Engine, kind string) ([]sweep, error) {
	all := []sweep{
		{models.SweepEscalation, e.RunEscalationSweep},
		{models.SweepBatch, e.RunBatchSweep},
		{models.SweepPreventive, e.RunPreventiveSweep},
	}
	if kind == "all" {
		return all, nil
	}
	for _, sw := range all {
		if string(sw.kind) == kind {
			return []sweep{sw}, nil
		}
	}
	return nil, fmt.Errorf("unknown sweep kind %q", kind)
}
