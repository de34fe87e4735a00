package store

import (
	"context"
	"time"

	"github.com/project-tktt/job-aggregator/internal/domain"
)

// JobStore persists normalized jobs keyed by (source, external_id)
type JobStore interface {
	// Upsert inserts the job or updates the stored row with the same (source, external_id).
	// The returned job carries the stored ID and CreatedAt; created is true on insert.
	Upsert(ctx context.Context, job *domain.Job) (*domain.Job, bool, error)
	RecentBySource(ctx context.Context, sourceID int64, since time.Time) ([]*domain.Job, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*domain.Job, error)
}

// SourceStore holds operator-configured job sources
type SourceStore interface {
	ListActive(ctx context.Context) ([]*domain.JobSource, error)
	// GetByName returns domain.ErrUnknownSource when no source has that name
	GetByName(ctx context.Context, name string) (*domain.JobSource, error)
	// Register inserts the source if no source with its name exists and returns the stored row
	Register(ctx context.Context, source *domain.JobSource) (*domain.JobSource, error)
}

// PreferenceStore holds users' standing searches
type PreferenceStore interface {
	Create(ctx context.Context, pref *domain.Preference) (*domain.Preference, error)
	ListActive(ctx context.Context) ([]*domain.Preference, error)
	// ListNotifiable returns active preferences with notifications enabled
	ListNotifiable(ctx context.Context) ([]*domain.Preference, error)
}

// MatchStore holds scored (user, job) matches, at most one per pair
type MatchStore interface {
	Exists(ctx context.Context, userID, jobID int64) (bool, error)
	// CreateIfAbsent inserts the match unless one exists for (user, job); created reports which happened
	CreateIfAbsent(ctx context.Context, match *domain.Match) (*domain.Match, bool, error)
	UnviewedSince(ctx context.Context, userID int64, since time.Time) ([]*domain.Match, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*domain.Match, error)
	SetFlags(ctx context.Context, id int64, flags domain.MatchFlags) (*domain.Match, error)
}

// RunLog records scrape runs. A run leaves the started state exactly once.
type RunLog interface {
	Start(ctx context.Context, sourceID int64, sourceName string) (*domain.ScrapeRun, error)
	// Complete and Fail return domain.ErrRunFinalized if the run is no longer started
	Complete(ctx context.Context, runID int64, counts domain.RunCounts) (*domain.ScrapeRun, error)
	Fail(ctx context.Context, runID int64, errText string) (*domain.ScrapeRun, error)
	Get(ctx context.Context, runID int64) (*domain.ScrapeRun, error)
	Recent(ctx context.Context, limit int) ([]*domain.ScrapeRun, error)
	// ReconcileStale fails every started run that began before the cutoff
	ReconcileStale(ctx context.Context, before time.Time, reason string) (int, error)
}

// NotificationStore records alert delivery outcomes
type NotificationStore interface {
	Record(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Notification, error)
}

// Stores bundles every store the pipeline needs
type Stores struct {
	Jobs          JobStore
	Sources       SourceStore
	Preferences   PreferenceStore
	Matches       MatchStore
	Runs          RunLog
	Notifications NotificationStore

	// Close releases the backing connection, if any
	Close func() error
}
