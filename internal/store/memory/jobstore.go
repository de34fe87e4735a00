package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/store"
)

var _ store.JobStore = (*JobStore)(nil)

type jobKey struct {
	source     string
	externalID string
}

// JobStore is an in-memory implementation of store.JobStore
type JobStore struct {
	mu     sync.RWMutex
	nextID int64
	jobs   map[int64]domain.Job
	byKey  map[jobKey]int64
	clock  clock
}

// NewJobStore creates an empty job store
func NewJobStore() *JobStore {
	return &JobStore{
		jobs:  make(map[int64]domain.Job),
		byKey: make(map[jobKey]int64),
	}
}

// Upsert inserts or updates by (source, external_id) under a single lock
func (s *JobStore) Upsert(_ context.Context, job *domain.Job) (*domain.Job, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.now()
	key := jobKey{source: job.Source, externalID: job.ExternalID}
	stored := copyJob(*job)
	stored.LastSeenAt = now

	id, exists := s.byKey[key]
	if exists {
		prev := s.jobs[id]
		stored.ID = prev.ID
		stored.CreatedAt = prev.CreatedAt
	} else {
		s.nextID++
		stored.ID = s.nextID
		stored.CreatedAt = now
		s.byKey[key] = stored.ID
	}
	s.jobs[stored.ID] = stored

	out := copyJob(stored)
	return &out, !exists, nil
}

// RecentBySource returns the source's jobs seen at or after since, oldest first
func (s *JobStore) RecentBySource(_ context.Context, sourceID int64, since time.Time) ([]*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Job
	for _, j := range s.jobs {
		if j.SourceID == sourceID && j.IsActive && !j.LastSeenAt.Before(since) {
			c := copyJob(j)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

// GetByIDs returns the stored jobs with the given IDs; unknown IDs are skipped
func (s *JobStore) GetByIDs(_ context.Context, ids []int64) ([]*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Job, 0, len(ids))
	for _, id := range ids {
		if j, ok := s.jobs[id]; ok {
			c := copyJob(j)
			out = append(out, &c)
		}
	}
	return out, nil
}

// Count returns the number of stored jobs
func (s *JobStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func copyJob(j domain.Job) domain.Job {
	if j.Tags != nil {
		j.Tags = append([]string(nil), j.Tags...)
	}
	if j.SalaryMin != nil {
		v := *j.SalaryMin
		j.SalaryMin = &v
	}
	if j.SalaryMax != nil {
		v := *j.SalaryMax
		j.SalaryMax = &v
	}
	return j
}
