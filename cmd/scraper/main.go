package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/project-tktt/job-aggregator/internal/api/handler"
	"github.com/project-tktt/job-aggregator/internal/api/router"
	"github.com/project-tktt/job-aggregator/internal/app"
	"github.com/project-tktt/job-aggregator/internal/config"
	"github.com/project-tktt/job-aggregator/internal/module"
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

	logger := app.NewLogger(cfg)
	logger.Info("Starting scrape service", slog.String("addr", cfg.Scraper.Addr))

	gin.SetMode(gin.ReleaseMode)

	// The scrape service always runs adapters in-process
	registry := module.NewRegistry(app.LocalAdapters(cfg, logger)...)
	r := router.SetupScrapeRouter(&handler.Dependencies{
		Logger:        logger,
		Registry:      registry,
		ScrapeTimeout: cfg.Scraper.ScrapeTimeout,
		MaxPagesLimit: cfg.Scraper.MaxPagesLimit,
	})

	srv := &http.Server{
		Addr:              cfg.Scraper.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Scraper.ScrapeTimeout + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", slog.Any("error", err))
		return err
	}

	logger.Info("Server shutdown complete")
	return nil
}
