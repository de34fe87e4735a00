package matcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/project-tktt/job-aggregator/internal/common/logger"
	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/queue"
	"github.com/project-tktt/job-aggregator/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	job := &domain.Job{
		Title:          "Senior Go Developer",
		Description:    "Kubernetes, Postgres and Go services",
		LocationMode:   domain.LocationRemote,
		EmploymentMode: domain.EmploymentFullTime,
	}

	tests := []struct {
		name string
		pref domain.Preference
		want float64
	}{
		{
			name: "everything matches",
			pref: domain.Preference{Keywords: []string{"go"}, LocationMode: domain.LocationRemote, EmploymentMode: domain.EmploymentFullTime},
			want: 1.0,
		},
		{
			name: "half the keywords in title, all in description",
			pref: domain.Preference{Keywords: []string{"GO", "postgres"}},
			want: 0.5,
		},
		{
			name: "modes only",
			pref: domain.Preference{LocationMode: domain.LocationRemote, EmploymentMode: domain.EmploymentFullTime},
			want: 0.3,
		},
		{
			name: "nothing matches",
			pref: domain.Preference{Keywords: []string{"java"}, LocationMode: domain.LocationOnsite, EmploymentMode: domain.EmploymentContract},
			want: 0,
		},
		{
			name: "blank keywords are ignored",
			pref: domain.Preference{Keywords: []string{" ", "developer"}},
			want: 0.4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(&tt.pref, job))
		})
	}
}

func TestScoreEmptyKeywordsContributeNothing(t *testing.T) {
	job := &domain.Job{Title: "Anything", LocationMode: domain.LocationHybrid}
	pref := &domain.Preference{LocationMode: domain.LocationHybrid}
	assert.Equal(t, 0.2, Score(pref, job))
}

type fixture struct {
	jobs    *memory.JobStore
	prefs   *memory.PreferenceStore
	matches *memory.MatchStore
	engine  *Engine
}

func newFixture() *fixture {
	f := &fixture{
		jobs:    memory.NewJobStore(),
		prefs:   memory.NewPreferenceStore(),
		matches: memory.NewMatchStore(),
	}
	f.engine = New(f.jobs, f.prefs, f.matches, Config{Window: 2 * time.Hour}, logger.Discard())
	return f
}

func (f *fixture) job(t *testing.T, sourceID int64, externalID, title, description string) *domain.Job {
	t.Helper()
	j, _, err := f.jobs.Upsert(context.Background(), &domain.Job{
		SourceID:       sourceID,
		Source:         "board",
		ExternalID:     externalID,
		Title:          title,
		Description:    description,
		LocationMode:   domain.LocationRemote,
		EmploymentMode: domain.EmploymentFullTime,
		IsActive:       true,
	})
	require.NoError(t, err)
	return j
}

func (f *fixture) pref(t *testing.T, p domain.Preference) *domain.Preference {
	t.Helper()
	p.IsActive = true
	out, err := f.prefs.Create(context.Background(), &p)
	require.NoError(t, err)
	return out
}

func TestMatchSourceThresholdIsStrict(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.job(t, 1, "board_1", "Office Manager", "Keeps the office running")

	// 0.2 + 0.1 from modes alone: exactly the threshold
	f.pref(t, domain.Preference{UserID: 1, LocationMode: domain.LocationRemote, EmploymentMode: domain.EmploymentFullTime})
	// one of ten keywords in the description adds 0.03
	f.pref(t, domain.Preference{
		UserID:         2,
		Keywords:       []string{"office", "zq1", "zq2", "zq3", "zq4", "zq5", "zq6", "zq7", "zq8", "zq9"},
		LocationMode:   domain.LocationOnsite,
		EmploymentMode: domain.EmploymentFullTime,
	})
	f.pref(t, domain.Preference{
		UserID:         3,
		Keywords:       []string{"running", "zq1", "zq2", "zq3", "zq4", "zq5", "zq6", "zq7", "zq8", "zq9"},
		LocationMode:   domain.LocationRemote,
		EmploymentMode: domain.EmploymentFullTime,
	})

	created, err := f.engine.MatchSource(ctx, 1, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	all := f.matches.All()
	require.Len(t, all, 1)
	assert.Equal(t, int64(3), all[0].UserID)
	assert.InDelta(t, 0.33, all[0].Score, 1e-9)
}

func TestMatchSourceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.job(t, 1, "board_1", "Go Developer", "Build Go services")
	f.job(t, 1, "board_2", "Rust Developer", "Systems work")
	f.pref(t, domain.Preference{UserID: 7, Keywords: []string{"go"}, LocationMode: domain.LocationRemote})

	created, err := f.engine.MatchSource(ctx, 1, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	created, err = f.engine.MatchSource(ctx, 1, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Len(t, f.matches.All(), 1)
}

func TestMatchSourceFirstPreferenceWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	job := f.job(t, 1, "board_1", "Go Developer", "Go and Kubernetes")

	first := f.pref(t, domain.Preference{UserID: 5, Keywords: []string{"go"}})
	f.pref(t, domain.Preference{UserID: 5, Keywords: []string{"kubernetes", "go"}, LocationMode: domain.LocationRemote})

	created, err := f.engine.MatchSource(ctx, 1, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	all := f.matches.All()
	require.Len(t, all, 1)
	assert.Equal(t, first.ID, all[0].PreferenceID)
	assert.Equal(t, job.ID, all[0].JobID)
	assert.Equal(t, 0.7, all[0].Score)
}

func TestMatchSourceScopedToSourceAndWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.job(t, 1, "board_1", "Go Developer", "")
	f.job(t, 2, "other_1", "Go Developer", "")
	f.pref(t, domain.Preference{UserID: 1, Keywords: []string{"go"}})

	created, err := f.engine.MatchSource(ctx, 2, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	assert.Len(t, f.matches.All(), 1)

	created, err = f.engine.MatchSource(ctx, 1, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestMatchSourceIgnoresInactivePreferences(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.job(t, 1, "board_1", "Go Developer", "")
	_, err := f.prefs.Create(ctx, &domain.Preference{UserID: 1, Keywords: []string{"go"}, IsActive: false})
	require.NoError(t, err)

	created, err := f.engine.MatchSource(ctx, 1, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestHandleTask(t *testing.T) {
	f := newFixture()
	f.job(t, 4, "board_1", "Go Developer", "")
	f.pref(t, domain.Preference{UserID: 1, Keywords: []string{"go"}})

	task, err := queue.NewTask(queue.TaskMatchSource, queue.MatchSourcePayload{SourceID: 4, SourceName: "board", Since: time.Now().Add(-time.Minute)})
	require.NoError(t, err)
	require.NoError(t, f.engine.HandleTask(context.Background(), &task))
	assert.Len(t, f.matches.All(), 1)

	bad := queue.Task{Type: queue.TaskMatchSource, Payload: []byte("{")}
	err = f.engine.HandleTask(context.Background(), &bad)
	assert.Error(t, err)
	assert.False(t, domain.IsRetryable(err))
}

type failingJobStore struct {
	*memory.JobStore
}

func (failingJobStore) RecentBySource(context.Context, int64, time.Time) ([]*domain.Job, error) {
	return nil, errors.New("connection refused")
}

func TestHandleTaskStoreFailureIsRetryable(t *testing.T) {
	f := newFixture()
	engine := New(failingJobStore{f.jobs}, f.prefs, f.matches, Config{}, logger.Discard())

	task, err := queue.NewTask(queue.TaskMatchSource, queue.MatchSourcePayload{SourceID: 1, Since: time.Now()})
	require.NoError(t, err)

	err = engine.HandleTask(context.Background(), &task)
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))
	assert.Contains(t, err.Error(), "connection refused")
}
