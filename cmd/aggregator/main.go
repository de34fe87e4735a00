// Command aggregator runs the scheduler, the worker pool and the ops server in one process.
// With STORE_DRIVER=memory and QUEUE_DRIVER=memory it needs no external services.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/project-tktt/job-aggregator/internal/api/handler"
	"github.com/project-tktt/job-aggregator/internal/api/router"
	"github.com/project-tktt/job-aggregator/internal/app"
	"github.com/project-tktt/job-aggregator/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	scrapeNow := flag.Bool("scrape-now", false, "dispatch a scrape of every active source at startup")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := app.NewLogger(cfg)
	logger.Info("Starting aggregator",
		slog.String("store", cfg.Store.Driver),
		slog.String("queue", cfg.Queue.Driver),
	)

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

	pipeline := a.NewPipeline()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := pipeline.NewWorker().Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Worker error", slog.Any("error", err))
		}
	}()

	s := app.NewScheduler(pipeline, logger)
	if err := s.Start(ctx); err != nil {
		stop()
		wg.Wait()
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr: cfg.Worker.Addr,
		Handler: router.SetupWorkerRouter(&handler.Dependencies{
			Logger:        logger,
			Runs:          a.Stores.Runs,
			Matches:       a.Stores.Matches,
			Notifications: a.Stores.Notifications,
			Queue:         a.Queue,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Ops server listening", slog.String("addr", cfg.Worker.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ops server failed", slog.Any("error", err))
		}
	}()

	if *scrapeNow {
		if _, err := pipeline.Orchestrator.ScrapeAll(ctx); err != nil {
			logger.Error("Initial scrape dispatch failed", slog.Any("error", err))
		}
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	s.Stop()
	wg.Wait()
	logger.Info("Graceful shutdown complete")
	return nil
}
