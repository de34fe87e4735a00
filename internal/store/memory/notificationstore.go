package memory

import (
	"context"
	"sync"

	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/store"
)

var _ store.NotificationStore = (*NotificationStore)(nil)

// NotificationStore is an in-memory implementation of store.NotificationStore
type NotificationStore struct {
	mu            sync.RWMutex
	nextID        int64
	notifications []domain.Notification
	clock         clock
}

// NewNotificationStore creates an empty notification store
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

// Record stores a delivery outcome and assigns its ID
func (s *NotificationStore) Record(_ context.Context, n *domain.Notification) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	stored := *n
	stored.ID = s.nextID
	stored.MatchIDs = append([]int64(nil), n.MatchIDs...)
	stored.CreatedAt = s.clock.now()
	s.notifications = append(s.notifications, stored)

	out := stored
	return &out, nil
}

// ListByUser returns the user's notifications in the order they were recorded
func (s *NotificationStore) ListByUser(_ context.Context, userID int64) ([]*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			c := n
			c.MatchIDs = append([]int64(nil), n.MatchIDs...)
			out = append(out, &c)
		}
	}
	return out, nil
}
