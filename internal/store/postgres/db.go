// Package postgres implements the stores on PostgreSQL. Uniqueness of (source, external_id)
// and (user_id, job_id) is enforced by constraints so concurrent writers converge.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/store"
)

// Open connects, verifies the connection and makes sure the schema exists
func Open(ctx context.Context, connStr string, logger *slog.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := ensureSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	logger.Info("Connected to PostgreSQL")
	return db, nil
}

// New wraps an open database in the full set of stores
func New(db *sqlx.DB) store.Stores {
	return store.Stores{
		Jobs:          NewJobStore(db),
		Sources:       NewSourceStore(db),
		Preferences:   NewPreferenceStore(db),
		Matches:       NewMatchStore(db),
		Runs:          NewRunLog(db),
		Notifications: NewNotificationStore(db),
		Close:         db.Close,
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS job_sources (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	base_url TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	config JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS jobs (
	id BIGSERIAL PRIMARY KEY,
	source_id BIGINT NOT NULL REFERENCES job_sources(id),
	source TEXT NOT NULL,
	external_id TEXT NOT NULL,
	title TEXT NOT NULL,
	company TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	location_mode TEXT NOT NULL DEFAULT 'onsite',
	employment_mode TEXT NOT NULL DEFAULT 'full-time',
	description TEXT NOT NULL DEFAULT '',
	requirements TEXT NOT NULL DEFAULT '',
	salary_min INTEGER,
	salary_max INTEGER,
	currency TEXT NOT NULL DEFAULT 'USD',
	tags TEXT[] NOT NULL DEFAULT '{}',
	url TEXT NOT NULL DEFAULT '',
	posted_at TIMESTAMP WITH TIME ZONE NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	last_seen_at TIMESTAMP WITH TIME ZONE NOT NULL,
	UNIQUE (source, external_id)
);
CREATE INDEX IF NOT EXISTS jobs_source_seen_idx ON jobs (source_id, last_seen_at);

CREATE TABLE IF NOT EXISTS preferences (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	keywords TEXT[] NOT NULL DEFAULT '{}',
	location_mode TEXT NOT NULL DEFAULT '',
	employment_mode TEXT NOT NULL DEFAULT '',
	salary_min INTEGER,
	salary_max INTEGER,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	notification_enabled BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS matches (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	job_id BIGINT NOT NULL REFERENCES jobs(id),
	preference_id BIGINT NOT NULL REFERENCES preferences(id),
	score DOUBLE PRECISION NOT NULL,
	is_viewed BOOLEAN NOT NULL DEFAULT FALSE,
	is_bookmarked BOOLEAN NOT NULL DEFAULT FALSE,
	is_applied BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP WITH TIME ZONE NOT NULL,
	UNIQUE (user_id, job_id)
);
CREATE INDEX IF NOT EXISTS matches_user_created_idx ON matches (user_id, created_at);

CREATE TABLE IF NOT EXISTS scrape_runs (
	id BIGSERIAL PRIMARY KEY,
	source_id BIGINT NOT NULL,
	source_name TEXT NOT NULL,
	status TEXT NOT NULL,
	jobs_scraped INTEGER NOT NULL DEFAULT 0,
	jobs_created INTEGER NOT NULL DEFAULT 0,
	jobs_updated INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMP WITH TIME ZONE NOT NULL,
	completed_at TIMESTAMP WITH TIME ZONE
);
CREATE INDEX IF NOT EXISTS scrape_runs_status_idx ON scrape_runs (status, started_at);

CREATE TABLE IF NOT EXISTS notifications (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL,
	match_ids BIGINT[] NOT NULL DEFAULT '{}',
	subject TEXT NOT NULL DEFAULT '',
	sent BOOLEAN NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP WITH TIME ZONE NOT NULL
);
`

func ensureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

// mapError turns serialization failures, deadlocks and unique violations into ErrPersistenceConflict
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "23505":
			return fmt.Errorf("%s: %w: %s", op, domain.ErrPersistenceConflict, pqErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func now() time.Time {
	return time.Now().UTC()
}
