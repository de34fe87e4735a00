package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/store"
)

var _ store.MatchStore = (*MatchStore)(nil)

type userJob struct {
	userID int64
	jobID  int64
}

// MatchStore is an in-memory implementation of store.MatchStore.
// The (user, job) index plays the role of the unique constraint.
type MatchStore struct {
	mu      sync.RWMutex
	nextID  int64
	matches map[int64]domain.Match
	byPair  map[userJob]int64
	clock   clock
}

// NewMatchStore creates an empty match store
func NewMatchStore() *MatchStore {
	return &MatchStore{
		matches: make(map[int64]domain.Match),
		byPair:  make(map[userJob]int64),
	}
}

// Exists reports whether the user already has a match for the job
func (s *MatchStore) Exists(_ context.Context, userID, jobID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byPair[userJob{userID, jobID}]
	return ok, nil
}

// CreateIfAbsent stores the match unless the (user, job) pair already has one
func (s *MatchStore) CreateIfAbsent(_ context.Context, match *domain.Match) (*domain.Match, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userJob{match.UserID, match.JobID}
	if id, ok := s.byPair[key]; ok {
		existing := s.matches[id]
		return &existing, false, nil
	}

	s.nextID++
	stored := *match
	stored.ID = s.nextID
	stored.CreatedAt = s.clock.now()
	s.matches[stored.ID] = stored
	s.byPair[key] = stored.ID

	out := stored
	return &out, true, nil
}

// UnviewedSince returns the user's unviewed matches created at or after since
func (s *MatchStore) UnviewedSince(_ context.Context, userID int64, since time.Time) ([]*domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Match
	for _, m := range s.matches {
		if m.UserID == userID && !m.IsViewed && !m.CreatedAt.Before(since) {
			c := m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

// GetByIDs returns the matches with the given IDs; unknown IDs are skipped
func (s *MatchStore) GetByIDs(_ context.Context, ids []int64) ([]*domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Match, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.matches[id]; ok {
			c := m
			out = append(out, &c)
		}
	}
	return out, nil
}

// SetFlags applies the non-nil flags and returns the updated match
func (s *MatchStore) SetFlags(_ context.Context, id int64, flags domain.MatchFlags) (*domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if flags.Viewed != nil {
		m.IsViewed = *flags.Viewed
	}
	if flags.Bookmarked != nil {
		m.IsBookmarked = *flags.Bookmarked
	}
	if flags.Applied != nil {
		m.IsApplied = *flags.Applied
	}
	s.matches[id] = m

	out := m
	return &out, nil
}

// All returns every match ordered by id
func (s *MatchStore) All() []*domain.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Match, 0, len(s.matches))
	for _, m := range s.matches {
		c := m
		out = append(out, &c)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}
