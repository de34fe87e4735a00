package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/store"
)

var _ store.NotificationStore = (*NotificationStore)(nil)

// NotificationStore is the PostgreSQL implementation of store.NotificationStore
type NotificationStore struct {
	db *sqlx.DB
}

// NewNotificationStore creates a Postgres-backed NotificationStore
func NewNotificationStore(db *sqlx.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

type notificationRow struct {
	ID        int64         `db:"id"`
	UserID    int64         `db:"user_id"`
	MatchIDs  pq.Int64Array `db:"match_ids"`
	Subject   string        `db:"subject"`
	Sent      bool          `db:"sent"`
	Error     string        `db:"error"`
	CreatedAt time.Time     `db:"created_at"`
}

func (r notificationRow) toDomain() *domain.Notification {
	return &domain.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		MatchIDs:  []int64(r.MatchIDs),
		Subject:   r.Subject,
		Sent:      r.Sent,
		Error:     r.Error,
		CreatedAt: r.CreatedAt,
	}
}

const notificationColumns = `id, user_id, match_ids, subject, sent, error, created_at`

func (s *NotificationStore) Record(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	ids := n.MatchIDs
	if ids == nil {
		ids = []int64{}
	}

	var row notificationRow
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO notifications (user_id, match_ids, subject, sent, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+notificationColumns,
		n.UserID, pq.Array(ids), n.Subject, n.Sent, n.Error, now(),
	).StructScan(&row)
	if err != nil {
		return nil, mapError("insert notification", err)
	}
	return row.toDomain(), nil
}

// ListByUser returns the user's notifications, oldest first
func (s *NotificationStore) ListByUser(ctx context.Context, userID int64) ([]*domain.Notification, error) {
	var rows []notificationRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+notificationColumns+` FROM notifications WHERE user_id = $1 ORDER BY id`, userID); err != nil {
		return nil, mapError("select notifications", err)
	}

	out := make([]*domain.Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
