package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/project-tktt/job-aggregator/internal/app"
	"github.com/project-tktt/job-aggregator/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Queue.Driver == config.DriverMemory {
		return errors.New("scheduler needs a shared queue; use QUEUE_DRIVER=redis or run cmd/aggregator")
	}

	logger := app.NewLogger(cfg)
	logger.Info("Starting scheduler")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := app.SeedSources(ctx, a.Stores.Sources, a.Registry); err != nil {
		return err
	}

	s := app.NewScheduler(a.NewPipeline(), logger)
	if err := s.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping...")
	s.Stop()
	return nil
}
