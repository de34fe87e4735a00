package main

import (
	"context"
	"errors"
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
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Queue.Driver == config.DriverMemory {
		return errors.New("worker needs a shared queue; use QUEUE_DRIVER=redis or run cmd/aggregator")
	}

	logger := app.NewLogger(cfg)
	logger.Info("Starting worker service")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	pipeline := a.NewPipeline()

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

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := pipeline.NewWorker().Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Worker error", slog.Any("error", err))
		}
	}()

	go func() {
		logger.Info("Ops server listening", slog.String("addr", cfg.Worker.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Ops server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Graceful shutdown complete")
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout, forcing exit")
	}
	return nil
}
