package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/project-tktt/job-aggregator/internal/module/alert"
	"github.com/project-tktt/job-aggregator/internal/module/matcher"
	"github.com/project-tktt/job-aggregator/internal/module/orchestrator"
	"github.com/project-tktt/job-aggregator/internal/module/worker"
	"github.com/project-tktt/job-aggregator/internal/queue"
)

const staleRunReason = "run abandoned: no outcome recorded before the staleness threshold"

// Pipeline holds the stage components built on one App
type Pipeline struct {
	Orchestrator *orchestrator.Orchestrator
	Matcher      *matcher.Engine
	Alerts       *alert.Scheduler
	Sender       *alert.Sender

	app *App
}

// NewPipeline builds every stage from the app's stores, queue and registry
func (a *App) NewPipeline() *Pipeline {
	cfg := a.Config

	var dispatcher alert.Dispatcher
	if cfg.Alert.WebhookURL != "" {
		dispatcher = alert.NewWebhookDispatcher(cfg.Alert.WebhookURL, 10*time.Second)
	}

	return &Pipeline{
		Orchestrator: orchestrator.New(a.Registry, a.Stores, a.Indexer, a.Queue, orchestrator.Config{
			ScrapeTimeout:   cfg.Scraper.ScrapeTimeout,
			DefaultMaxPages: cfg.Scraper.DefaultMaxPages,
		}, a.Logger),
		Matcher: matcher.New(a.Stores.Jobs, a.Stores.Preferences, a.Stores.Matches, matcher.Config{
			Window: cfg.Pipeline.MatchWindow,
		}, a.Logger),
		Alerts: alert.NewScheduler(a.Stores.Preferences, a.Stores.Matches, a.Queue, a.Claimer, alert.SchedulerConfig{
			Window:   cfg.Pipeline.AlertWindow,
			Interval: ScheduleInterval(cfg.Schedule.Alert, alert.DefaultInterval),
		}, a.Logger),
		Sender: alert.NewSender(a.Stores.Matches, a.Stores.Jobs, a.Stores.Notifications, dispatcher, a.Logger),
		app:    a,
	}
}

// NewWorker returns a worker pool with a handler registered for every task type
func (p *Pipeline) NewWorker() *worker.Worker {
	cfg := p.app.Config

	w := worker.NewWorker(p.app.Queue, worker.Config{
		Concurrency: cfg.Worker.Concurrency,
		TaskTimeout: cfg.Worker.TaskTimeout,
		MaxAttempts: cfg.Worker.MaxAttempts,
	}, p.app.Logger)

	w.Handle(queue.TaskScrapeSource, p.Orchestrator.HandleTask)
	w.Handle(queue.TaskMatchSource, p.Matcher.HandleTask)
	w.Handle(queue.TaskSendAlert, p.Sender.HandleTask)
	return w
}

// ReconcileStale fails runs left in started past the staleness threshold
func (p *Pipeline) ReconcileStale(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-p.app.Config.Pipeline.StaleRunAfter)
	n, err := p.app.Stores.Runs.ReconcileStale(ctx, cutoff, staleRunReason)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		p.app.Logger.Warn("Reconciled stale runs", slog.Int("runs", n), slog.Time("cutoff", cutoff))
	}
	return n, nil
}
