package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/store"
)

var _ store.RunLog = (*RunLog)(nil)

// RunLog is the PostgreSQL implementation of store.RunLog
type RunLog struct {
	db *sqlx.DB
}

// NewRunLog creates a Postgres-backed RunLog
func NewRunLog(db *sqlx.DB) *RunLog {
	return &RunLog{db: db}
}

const runColumns = `id, source_id, source_name, status, jobs_scraped, jobs_created, jobs_updated,
	error, started_at, completed_at`

func (l *RunLog) Start(ctx context.Context, sourceID int64, sourceName string) (*domain.ScrapeRun, error) {
	var run domain.ScrapeRun
	err := l.db.QueryRowxContext(ctx, `
		INSERT INTO scrape_runs (source_id, source_name, status, started_at)
		VALUES ($1, $2, $3, $4)
		RETURNING `+runColumns,
		sourceID, sourceName, domain.RunStarted, now(),
	).StructScan(&run)
	if err != nil {
		return nil, mapError("insert scrape run", err)
	}
	return &run, nil
}

func (l *RunLog) Complete(ctx context.Context, runID int64, counts domain.RunCounts) (*domain.ScrapeRun, error) {
	return l.finalize(ctx, runID, `
		UPDATE scrape_runs SET status = $2, jobs_scraped = $3, jobs_created = $4, jobs_updated = $5, completed_at = $6
		WHERE id = $1 AND status = 'started'
		RETURNING `+runColumns,
		runID, domain.RunCompleted, counts.Scraped, counts.Created, counts.Updated, now())
}

func (l *RunLog) Fail(ctx context.Context, runID int64, errText string) (*domain.ScrapeRun, error) {
	return l.finalize(ctx, runID, `
		UPDATE scrape_runs SET status = $2, error = $3, completed_at = $4
		WHERE id = $1 AND status = 'started'
		RETURNING `+runColumns,
		runID, domain.RunFailed, errText, now())
}

// finalize only touches rows still started; no row back means finalized or missing
func (l *RunLog) finalize(ctx context.Context, runID int64, query string, args ...any) (*domain.ScrapeRun, error) {
	var run domain.ScrapeRun
	err := l.db.QueryRowxContext(ctx, query, args...).StructScan(&run)
	if err == nil {
		return &run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, mapError("finalize scrape run", err)
	}

	if _, err := l.Get(ctx, runID); err != nil {
		return nil, err
	}
	return nil, domain.ErrRunFinalized
}

func (l *RunLog) Get(ctx context.Context, runID int64) (*domain.ScrapeRun, error) {
	var run domain.ScrapeRun
	err := l.db.GetContext(ctx, &run, `SELECT `+runColumns+` FROM scrape_runs WHERE id = $1`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, mapError("select scrape run", err)
	}
	return &run, nil
}

func (l *RunLog) Recent(ctx context.Context, limit int) ([]*domain.ScrapeRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []*domain.ScrapeRun
	if err := l.db.SelectContext(ctx, &runs,
		`SELECT `+runColumns+` FROM scrape_runs ORDER BY id DESC LIMIT $1`, limit); err != nil {
		return nil, mapError("select recent runs", err)
	}
	return runs, nil
}

func (l *RunLog) ReconcileStale(ctx context.Context, before time.Time, reason string) (int, error) {
	res, err := l.db.ExecContext(ctx, `
		UPDATE scrape_runs SET status = $1, error = $2, completed_at = $3
		WHERE status = 'started' AND started_at < $4`,
		domain.RunFailed, reason, now(), before)
	if err != nil {
		return 0, mapError("reconcile stale runs", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError("reconcile stale runs", err)
	}
	return int(n), nil
}
