package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps robfig/cron and fires the periodic pipeline triggers
type Scheduler struct {
	cron     *cron.Cron
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler; overlapping firings of the same trigger are skipped
func NewScheduler(p *Pipeline, logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger.With(slog.String("component", "cron"))}
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		pipeline: p,
		logger:   logger.With(slog.String("component", "scheduler")),
	}
}

// Start registers the triggers and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	cfg := s.pipeline.app.Config.Schedule

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"scrape_all", cfg.Scrape, func(ctx context.Context) error {
			_, err := s.pipeline.Orchestrator.ScrapeAll(ctx)
			return err
		}},
		{"send_alerts", cfg.Alert, func(ctx context.Context) error {
			_, err := s.pipeline.Alerts.Run(ctx)
			return err
		}},
		{"reconcile_runs", cfg.Reconcile, func(ctx context.Context) error {
			_, err := s.pipeline.ReconcileStale(ctx)
			return err
		}},
	}

	for _, j := range jobs {
		if _, err := s.cron.AddFunc(j.spec, func() {
			if err := j.run(ctx); err != nil {
				s.logger.Error("Trigger failed", slog.String("trigger", j.name), slog.Any("error", err))
			}
		}); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", j.name, j.spec, err)
		}
		s.logger.Info("Trigger scheduled", slog.String("trigger", j.name), slog.String("spec", j.spec))
	}

	s.cron.Start()
	return nil
}

// Stop stops the cron loop and waits for running triggers
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// ScheduleInterval is the gap between two consecutive firings of a cron spec
func ScheduleInterval(spec string, fallback time.Duration) time.Duration {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fallback
	}
	first := sched.Next(time.Now())
	if d := sched.Next(first).Sub(first); d > 0 {
		return d
	}
	return fallback
}

// cronLogger adapts slog to cron.Logger
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
