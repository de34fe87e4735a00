package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/store"
)

var _ store.PreferenceStore = (*PreferenceStore)(nil)

// PreferenceStore is an in-memory implementation of store.PreferenceStore
type PreferenceStore struct {
	mu     sync.RWMutex
	nextID int64
	prefs  map[int64]domain.Preference
	clock  clock
}

// NewPreferenceStore creates an empty preference store
func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{prefs: make(map[int64]domain.Preference)}
}

// Create stores a new preference
func (s *PreferenceStore) Create(_ context.Context, pref *domain.Preference) (*domain.Preference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	stored := copyPreference(*pref)
	stored.ID = s.nextID
	stored.CreatedAt = s.clock.now()
	s.prefs[stored.ID] = stored

	c := copyPreference(stored)
	return &c, nil
}

// ListActive returns active preferences ordered by ID
func (s *PreferenceStore) ListActive(_ context.Context) ([]*domain.Preference, error) {
	return s.list(func(p domain.Preference) bool { return p.IsActive }), nil
}

// ListNotifiable returns active preferences with notifications enabled
func (s *PreferenceStore) ListNotifiable(_ context.Context) ([]*domain.Preference, error) {
	return s.list(func(p domain.Preference) bool { return p.IsActive && p.NotificationEnabled }), nil
}

func (s *PreferenceStore) list(keep func(domain.Preference) bool) []*domain.Preference {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Preference
	for _, p := range s.prefs {
		if keep(p) {
			c := copyPreference(p)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

func copyPreference(p domain.Preference) domain.Preference {
	if p.Keywords != nil {
		p.Keywords = append([]string(nil), p.Keywords...)
	}
	return p
}
