// Package main is the entry point for the Clearwater data poller.
//
// The poller periodically pulls new bacteria sampling results from the state
// open-data portal for every known station and persists them, keeping the
// sample store the status engine reads from current. All business logic
// lives in internal/scheduler; this file only wires dependencies.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clearwater/internal/config"
	"clearwater/internal/db"
	"clearwater/internal/external"
	"clearwater/internal/scheduler"
)

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	logger.Info("data poller starting",
		"environment", cfg.Environment,
		"interval", cfg.Poller.Interval.String(),
		"concurrency", cfg.Poller.Concurrency,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.NewPool(connectCtx, cfg.Database)
	cancel()
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	portal := external.NewPortalClient(cfg.Portal, logger)

	poller := scheduler.NewSamplePoller(scheduler.SamplePollerConfig{
		Stations:    db.NewStationRepository(pool),
		Samples:     db.NewSampleRepository(pool),
		Fetcher:     portal,
		Concurrency: cfg.Poller.Concurrency,
		Logger:      logger,
	})

	err = poller.Run(ctx, cfg.Poller.Interval)
	if errors.Is(err, context.Canceled) {
		logger.Info("data poller stopped cleanly")
		return nil
	}
	return err
}
