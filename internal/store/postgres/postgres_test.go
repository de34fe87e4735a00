package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/project-tktt/job-aggregator/internal/common/logger"
	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB needs TEST_POSTGRES_URL pointing at a disposable database
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}

	db, err := Open(context.Background(), url, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`TRUNCATE notifications, matches, scrape_runs, jobs, preferences, job_sources RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return db
}

func TestMapError(t *testing.T) {
	tests := []struct {
		code     pq.ErrorCode
		conflict bool
	}{
		{"40001", true},
		{"40P01", true},
		{"23505", true},
		{"42P01", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := mapError("op", &pq.Error{Code: tt.code, Message: "x"})
			assert.Equal(t, tt.conflict, errors.Is(err, domain.ErrPersistenceConflict))
			assert.Contains(t, err.Error(), "op")
		})
	}
	assert.NoError(t, mapError("op", nil))
	assert.ErrorIs(t, mapError("op", fmt.Errorf("wrapped: %w", context.Canceled)), context.Canceled)
}

func TestJobUpsert(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	st := New(db)

	src, err := st.Sources.Register(ctx, &domain.JobSource{Name: "remoteok", IsActive: true, Config: map[string]string{"per_page": "25"}})
	require.NoError(t, err)
	assert.Equal(t, "25", src.Config["per_page"])

	salaryMin := 90000
	first, created, err := st.Jobs.Upsert(ctx, &domain.Job{
		SourceID: src.ID, Source: "remoteok", ExternalID: "remoteok_1", Title: "Go Engineer",
		SalaryMin: &salaryMin, Tags: []string{"go"}, PostedAt: time.Now(), IsActive: true,
		LocationMode: domain.LocationRemote, EmploymentMode: domain.EmploymentFullTime,
	})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := st.Jobs.Upsert(ctx, &domain.Job{
		SourceID: src.ID, Source: "remoteok", ExternalID: "remoteok_1", Title: "Staff Go Engineer",
		Tags: []string{"go", "grpc"}, PostedAt: time.Now(), IsActive: true,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.WithinDuration(t, first.CreatedAt, second.CreatedAt, time.Millisecond)
	assert.Equal(t, "Staff Go Engineer", second.Title)
	assert.Equal(t, []string{"go", "grpc"}, second.Tags)
	assert.Nil(t, second.SalaryMax)

	recent, err := st.Jobs.RecentBySource(ctx, src.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	byID, err := st.Jobs.GetByIDs(ctx, []int64{first.ID})
	require.NoError(t, err)
	require.Len(t, byID, 1)
}

func TestMatchesAndRuns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	st := New(db)

	src, err := st.Sources.Register(ctx, &domain.JobSource{Name: "indeed", IsActive: true})
	require.NoError(t, err)
	_, err = st.Sources.GetByName(ctx, "monster")
	assert.ErrorIs(t, err, domain.ErrUnknownSource)

	job, _, err := st.Jobs.Upsert(ctx, &domain.Job{SourceID: src.ID, Source: "indeed", ExternalID: "indeed_x", Title: "t", PostedAt: time.Now(), IsActive: true})
	require.NoError(t, err)
	pref, err := st.Preferences.Create(ctx, &domain.Preference{UserID: 7, Keywords: []string{"go"}, IsActive: true, NotificationEnabled: true})
	require.NoError(t, err)

	m, created, err := st.Matches.CreateIfAbsent(ctx, &domain.Match{UserID: 7, JobID: job.ID, PreferenceID: pref.ID, Score: 0.7})
	require.NoError(t, err)
	assert.True(t, created)
	again, created, err := st.Matches.CreateIfAbsent(ctx, &domain.Match{UserID: 7, JobID: job.ID, PreferenceID: pref.ID, Score: 0.9})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, m.ID, again.ID)

	viewed := true
	updated, err := st.Matches.SetFlags(ctx, m.ID, domain.MatchFlags{Viewed: &viewed})
	require.NoError(t, err)
	assert.True(t, updated.IsViewed)
	unviewed, err := st.Matches.UnviewedSince(ctx, 7, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, unviewed)

	run, err := st.Runs.Start(ctx, src.ID, src.Name)
	require.NoError(t, err)
	done, err := st.Runs.Complete(ctx, run.ID, domain.RunCounts{Scraped: 1, Created: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, done.Status)
	_, err = st.Runs.Fail(ctx, run.ID, "late")
	assert.ErrorIs(t, err, domain.ErrRunFinalized)

	stuck, err := st.Runs.Start(ctx, src.ID, src.Name)
	require.NoError(t, err)
	n, err := st.Runs.ReconcileStale(ctx, time.Now().Add(time.Minute), "stale")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, err := st.Runs.Get(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, got.Status)

	note, err := st.Notifications.Record(ctx, &domain.Notification{UserID: 7, MatchIDs: []int64{m.ID}, Sent: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{m.ID}, note.MatchIDs)
}
