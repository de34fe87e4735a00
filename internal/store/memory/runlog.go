package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/store"
)

var _ store.RunLog = (*RunLog)(nil)

// RunLog is an in-memory implementation of store.RunLog
type RunLog struct {
	mu     sync.RWMutex
	nextID int64
	runs   map[int64]domain.ScrapeRun
	clock  clock
}

// NewRunLog creates an empty run log
func NewRunLog() *RunLog {
	return &RunLog{runs: make(map[int64]domain.ScrapeRun)}
}

// Start opens a run in the started state
func (l *RunLog) Start(_ context.Context, sourceID int64, sourceName string) (*domain.ScrapeRun, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	run := domain.ScrapeRun{
		ID:         l.nextID,
		SourceID:   sourceID,
		SourceName: sourceName,
		Status:     domain.RunStarted,
		StartedAt:  l.clock.now(),
	}
	l.runs[run.ID] = run

	out := run
	return &out, nil
}

// Complete finalizes a started run with its counts
func (l *RunLog) Complete(_ context.Context, runID int64, counts domain.RunCounts) (*domain.ScrapeRun, error) {
	return l.finalize(runID, func(r *domain.ScrapeRun) {
		r.Status = domain.RunCompleted
		r.JobsScraped = counts.Scraped
		r.JobsCreated = counts.Created
		r.JobsUpdated = counts.Updated
	})
}

// Fail finalizes a started run with the error text
func (l *RunLog) Fail(_ context.Context, runID int64, errText string) (*domain.ScrapeRun, error) {
	return l.finalize(runID, func(r *domain.ScrapeRun) {
		r.Status = domain.RunFailed
		r.Error = errText
	})
}

func (l *RunLog) finalize(runID int64, apply func(*domain.ScrapeRun)) (*domain.ScrapeRun, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	run, ok := l.runs[runID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if run.Status != domain.RunStarted {
		return nil, domain.ErrRunFinalized
	}

	apply(&run)
	end := l.clock.now()
	run.CompletedAt = &end
	l.runs[runID] = run

	out := run
	return &out, nil
}

// Get returns domain.ErrNotFound for unknown runs
func (l *RunLog) Get(_ context.Context, runID int64) (*domain.ScrapeRun, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	run, ok := l.runs[runID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &run, nil
}

// Recent returns the newest runs first
func (l *RunLog) Recent(_ context.Context, limit int) ([]*domain.ScrapeRun, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*domain.ScrapeRun, 0, len(l.runs))
	for _, r := range l.runs {
		c := r
		out = append(out, &c)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID > out[b].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ReconcileStale fails started runs that began before the cutoff
func (l *RunLog) ReconcileStale(_ context.Context, before time.Time, reason string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	end := l.clock.now()
	for id, run := range l.runs {
		if run.Status != domain.RunStarted || !run.StartedAt.Before(before) {
			continue
		}
		run.Status = domain.RunFailed
		run.Error = reason
		run.CompletedAt = &end
		l.runs[id] = run
		n++
	}
	return n, nil
}
