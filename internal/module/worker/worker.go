package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/queue"
)

// Handler runs one task. Returning an error marked retryable asks for another attempt.
type Handler func(ctx context.Context, task *queue.Task) error

// Worker processes tasks from the queue with a fixed pool of goroutines
type Worker struct {
	queue    queue.Queue
	handlers map[queue.TaskType]Handler
	logger   *slog.Logger

	concurrency int
	taskTimeout time.Duration
	maxAttempts int
	backoff     time.Duration
}

// Config holds worker configuration
type Config struct {
	Concurrency int
	TaskTimeout time.Duration
	MaxAttempts int
}

// NewWorker creates a new worker
func NewWorker(q queue.Queue, cfg Config, logger *slog.Logger) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 10 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	return &Worker{
		queue:       q,
		handlers:    make(map[queue.TaskType]Handler),
		logger:      logger.With(slog.String("component", "worker")),
		concurrency: cfg.Concurrency,
		taskTimeout: cfg.TaskTimeout,
		maxAttempts: cfg.MaxAttempts,
		backoff:     time.Second,
	}
}

// Handle registers the handler for a task type. Call before Run.
func (w *Worker) Handle(taskType queue.TaskType, h Handler) {
	w.handlers[taskType] = h
}

// Run starts the worker pool and blocks until ctx is cancelled
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("Starting worker pool", slog.Int("workers", w.concurrency))

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.runSingle(ctx, workerID)
		}(i)
	}

	wg.Wait()
	w.logger.Info("Worker pool stopped")
	return ctx.Err()
}

func (w *Worker) runSingle(ctx context.Context, workerID int) {
	logger := w.logger.With(slog.Int("worker_id", workerID))
	logger.Debug("Worker started")

	for {
		if ctx.Err() != nil {
			logger.Debug("Worker stopping")
			return
		}

		// Receive blocks up to the queue's poll timeout, so no CPU spinning
		task, err := w.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("Receive failed", slog.Any("error", err))
			w.pause(ctx)
			continue
		}
		if task == nil {
			continue
		}

		w.process(ctx, task, logger)
	}
}

// process runs one task attempt and either re-submits it or reports its final outcome
func (w *Worker) process(ctx context.Context, task *queue.Task, logger *slog.Logger) {
	logger = logger.With(
		slog.String("task_id", task.ID),
		slog.String("task_type", string(task.Type)),
		slog.Int("attempt", task.Attempt),
	)

	start := time.Now()
	err := w.run(ctx, task)

	if err != nil && domain.IsRetryable(err) && task.Attempt < w.maxAttempts && ctx.Err() == nil {
		retry := *task
		retry.Attempt++
		_, serr := w.queue.Submit(ctx, retry)
		if serr == nil {
			logger.Warn("Task failed, retrying", slog.Any("error", err))
			return
		}
		logger.Error("Failed to resubmit task", slog.Any("error", serr))
	}

	outcome := queue.Outcome{
		TaskID:     task.ID,
		Type:       task.Type,
		Status:     queue.StatusSucceeded,
		Attempt:    task.Attempt,
		FinishedAt: time.Now().UTC(),
	}
	if err != nil {
		outcome.Status = queue.StatusFailed
		outcome.Error = err.Error()
		logger.Error("Task failed", slog.Any("error", err), slog.Duration("took", time.Since(start)))
	} else {
		logger.Info("Task succeeded", slog.Duration("took", time.Since(start)))
	}

	if rerr := w.queue.Report(context.WithoutCancel(ctx), outcome); rerr != nil {
		logger.Error("Failed to report outcome", slog.Any("error", rerr))
	}
}

func (w *Worker) run(ctx context.Context, task *queue.Task) (err error) {
	h, ok := w.handlers[task.Type]
	if !ok {
		return fmt.Errorf("no handler for task type %q", task.Type)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, w.taskTimeout)
	defer cancel()

	err = h(ctx, task)
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
		err = fmt.Errorf("task timed out after %s: %w", w.taskTimeout, err)
	}
	return err
}

func (w *Worker) pause(ctx context.Context) {
	t := time.NewTimer(w.backoff)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
