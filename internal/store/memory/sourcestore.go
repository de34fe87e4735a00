package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/store"
)

var _ store.SourceStore = (*SourceStore)(nil)

// SourceStore is an in-memory implementation of store.SourceStore
type SourceStore struct {
	mu      sync.RWMutex
	nextID  int64
	sources map[string]domain.JobSource
	clock   clock
}

// NewSourceStore creates an empty source store
func NewSourceStore() *SourceStore {
	return &SourceStore{sources: make(map[string]domain.JobSource)}
}

// ListActive returns the active sources
func (s *SourceStore) ListActive(_ context.Context) ([]*domain.JobSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.JobSource
	for _, src := range s.sources {
		if src.IsActive {
			c := copySource(src)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

// GetByName returns domain.ErrUnknownSource for unknown names
func (s *SourceStore) GetByName(_ context.Context, name string) (*domain.JobSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSource, name)
	}
	c := copySource(src)
	return &c, nil
}

// Register inserts the source unless its name is taken and returns the stored row
func (s *SourceStore) Register(_ context.Context, source *domain.JobSource) (*domain.JobSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sources[source.Name]; ok {
		c := copySource(existing)
		return &c, nil
	}

	s.nextID++
	stored := copySource(*source)
	stored.ID = s.nextID
	stored.CreatedAt = s.clock.now()
	s.sources[stored.Name] = stored

	c := copySource(stored)
	return &c, nil
}

// SetActive toggles a source, as an operator would
func (s *SourceStore) SetActive(name string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src, ok := s.sources[name]; ok {
		src.IsActive = active
		s.sources[name] = src
	}
}

func copySource(src domain.JobSource) domain.JobSource {
	if src.Config != nil {
		src.Config = maps.Clone(src.Config)
	}
	return src
}
