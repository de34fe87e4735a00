// Package orchestrator runs source adapters and records each run's outcome.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/project-tktt/job-aggregator/internal/common/indexer"
	"github.com/project-tktt/job-aggregator/internal/common/normalizer"
	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/module"
	"github.com/project-tktt/job-aggregator/internal/queue"
	"github.com/project-tktt/job-aggregator/internal/store"
)

// Config holds orchestrator configuration
type Config struct {
	ScrapeTimeout   time.Duration
	DefaultMaxPages int
	UpsertAttempts  int
}

// Orchestrator dispatches scrapes and runs them one source at a time
type Orchestrator struct {
	registry *module.Registry
	sources  store.SourceStore
	jobs     store.JobStore
	runs     store.RunLog
	indexer  indexer.Indexer
	tasks    queue.Submitter
	config   Config
	logger   *slog.Logger
}

// New creates an orchestrator. A nil indexer disables search indexing.
func New(registry *module.Registry, stores store.Stores, idx indexer.Indexer, tasks queue.Submitter, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.ScrapeTimeout <= 0 {
		cfg.ScrapeTimeout = 300 * time.Second
	}
	if cfg.DefaultMaxPages <= 0 {
		cfg.DefaultMaxPages = 3
	}
	if cfg.UpsertAttempts <= 0 {
		cfg.UpsertAttempts = 3
	}
	if idx == nil {
		idx = indexer.Nop{}
	}

	return &Orchestrator{
		registry: registry,
		sources:  stores.Sources,
		jobs:     stores.Jobs,
		runs:     stores.Runs,
		indexer:  idx,
		tasks:    tasks,
		config:   cfg,
		logger:   logger.With(slog.String("component", "orchestrator")),
	}
}

// ScrapeAll submits one scrape task per active source and returns the task ids.
// A failed submission is logged and does not stop the remaining sources.
func (o *Orchestrator) ScrapeAll(ctx context.Context) ([]string, error) {
	sources, err := o.sources.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}

	ids := make([]string, 0, len(sources))
	var errs []error
	for _, src := range sources {
		id, err := queue.SubmitTask(ctx, o.tasks, queue.TaskScrapeSource, queue.ScrapeSourcePayload{SourceName: src.Name})
		if err != nil {
			o.logger.Error("Failed to submit scrape", slog.String("source", src.Name), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("submit %s: %w", src.Name, err))
			continue
		}
		ids = append(ids, id)
	}

	o.logger.Info("Dispatched scrapes", slog.Int("sources", len(sources)), slog.Int("submitted", len(ids)))
	return ids, errors.Join(errs...)
}

// ScrapeOne runs the named source's adapter inside a ScrapeRun. An adapter failure
// finalizes the run as failed and is returned alongside it.
func (o *Orchestrator) ScrapeOne(ctx context.Context, name string) (*domain.ScrapeRun, error) {
	src, err := o.sources.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	run, err := o.runs.Start(ctx, src.ID, src.Name)
	if err != nil {
		return nil, fmt.Errorf("start run for %s: %w", src.Name, err)
	}
	logger := o.logger.With(slog.String("source", src.Name), slog.Int64("run_id", run.ID))
	logger.Info("Scrape started")

	jobs, err := o.fetch(ctx, src)
	if err != nil {
		logger.Error("Scrape failed", slog.Any("error", err))
		failed, ferr := o.markFailed(ctx, run, err)
		if ferr != nil {
			return nil, fmt.Errorf("fail run %d: %w (cause: %v)", run.ID, ferr, err)
		}
		return failed, err
	}

	stored, counts, err := o.persist(ctx, src, jobs, logger)
	if err != nil {
		logger.Error("Persisting jobs failed", slog.Any("error", err))
		if _, ferr := o.markFailed(ctx, run, err); ferr != nil {
			logger.Error("Failed to finalize run", slog.Any("error", ferr))
		}
		return nil, err
	}

	completed, err := o.runs.Complete(ctx, run.ID, counts)
	if err != nil {
		return nil, fmt.Errorf("complete run %d: %w", run.ID, err)
	}
	run = completed
	logger.Info("Scrape completed",
		slog.Int("scraped", counts.Scraped),
		slog.Int("created", counts.Created),
		slog.Int("updated", counts.Updated),
		slog.Duration("duration", run.Duration()),
	)

	if len(stored) > 0 {
		if err := o.indexer.BulkIndex(ctx, stored); err != nil {
			logger.Warn("Indexing failed", slog.Any("error", err))
		}
	}

	if _, err := queue.SubmitTask(ctx, o.tasks, queue.TaskMatchSource, queue.MatchSourcePayload{
		SourceID:   src.ID,
		SourceName: src.Name,
		RunID:      run.ID,
		Since:      run.StartedAt,
	}); err != nil {
		return run, fmt.Errorf("submit match for run %d: %w", run.ID, err)
	}

	return run, nil
}

// HandleTask runs a scrape_source task
func (o *Orchestrator) HandleTask(ctx context.Context, task *queue.Task) error {
	var p queue.ScrapeSourcePayload
	if err := task.Decode(&p); err != nil {
		return err
	}
	_, err := o.ScrapeOne(ctx, p.SourceName)
	return err
}

func (o *Orchestrator) fetch(ctx context.Context, src *domain.JobSource) (jobs []*domain.Job, err error) {
	adapter, err := o.registry.Get(src.Name)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			jobs, err = nil, fmt.Errorf("adapter %s panicked: %v", src.Name, r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, o.config.ScrapeTimeout)
	defer cancel()

	return adapter.Fetch(ctx, module.FetchRequest{
		Keywords: normalizer.ParseKeywords(src.Config["keywords"]),
		Location: src.Config["location"],
		MaxPages: module.ConfigInt(src.Config, "max_pages", o.config.DefaultMaxPages),
		Config:   src.Config,
	})
}

// persist upserts every job. Jobs still conflicting after the retry budget are skipped;
// any other store error aborts the run.
func (o *Orchestrator) persist(ctx context.Context, src *domain.JobSource, jobs []*domain.Job, logger *slog.Logger) ([]*domain.Job, domain.RunCounts, error) {
	counts := domain.RunCounts{Scraped: len(jobs)}
	stored := make([]*domain.Job, 0, len(jobs))

	for _, job := range jobs {
		job.SourceID = src.ID
		job.Source = src.Name

		saved, created, err := o.upsert(ctx, job)
		if errors.Is(err, domain.ErrPersistenceConflict) {
			logger.Warn("Skipping job after repeated conflicts", slog.String("external_id", job.ExternalID), slog.Any("error", err))
			continue
		}
		if err != nil {
			return nil, counts, fmt.Errorf("upsert %s: %w", job.ExternalID, err)
		}

		if created {
			counts.Created++
		} else {
			counts.Updated++
		}
		stored = append(stored, saved)
	}

	return stored, counts, nil
}

func (o *Orchestrator) upsert(ctx context.Context, job *domain.Job) (*domain.Job, bool, error) {
	var err error
	for attempt := 1; attempt <= o.config.UpsertAttempts; attempt++ {
		var saved *domain.Job
		var created bool
		saved, created, err = o.jobs.Upsert(ctx, job)
		if err == nil {
			return saved, created, nil
		}
		if !errors.Is(err, domain.ErrPersistenceConflict) {
			return nil, false, err
		}
	}
	return nil, false, err
}

// markFailed records the failure on a context that outlives the caller's cancellation
func (o *Orchestrator) markFailed(ctx context.Context, run *domain.ScrapeRun, cause error) (*domain.ScrapeRun, error) {
	return o.runs.Fail(context.WithoutCancel(ctx), run.ID, cause.Error())
}
