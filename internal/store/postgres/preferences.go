package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/store"
)

var _ store.PreferenceStore = (*PreferenceStore)(nil)

// PreferenceStore is the PostgreSQL implementation of store.PreferenceStore
type PreferenceStore struct {
	db *sqlx.DB
}

// NewPreferenceStore creates a Postgres-backed PreferenceStore
func NewPreferenceStore(db *sqlx.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

type preferenceRow struct {
	ID                  int64          `db:"id"`
	UserID              int64          `db:"user_id"`
	Keywords            pq.StringArray `db:"keywords"`
	LocationMode        string         `db:"location_mode"`
	EmploymentMode      string         `db:"employment_mode"`
	SalaryMin           sql.NullInt64  `db:"salary_min"`
	SalaryMax           sql.NullInt64  `db:"salary_max"`
	IsActive            bool           `db:"is_active"`
	NotificationEnabled bool           `db:"notification_enabled"`
	CreatedAt           time.Time      `db:"created_at"`
}

func (r preferenceRow) toDomain() *domain.Preference {
	return &domain.Preference{
		ID:                  r.ID,
		UserID:              r.UserID,
		Keywords:            []string(r.Keywords),
		LocationMode:        domain.LocationMode(r.LocationMode),
		EmploymentMode:      domain.EmploymentMode(r.EmploymentMode),
		SalaryMin:           fromNullInt(r.SalaryMin),
		SalaryMax:           fromNullInt(r.SalaryMax),
		IsActive:            r.IsActive,
		NotificationEnabled: r.NotificationEnabled,
		CreatedAt:           r.CreatedAt,
	}
}

const preferenceColumns = `id, user_id, keywords, location_mode, employment_mode, salary_min, salary_max,
	is_active, notification_enabled, created_at`

func (s *PreferenceStore) Create(ctx context.Context, pref *domain.Preference) (*domain.Preference, error) {
	keywords := pref.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	var row preferenceRow
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO preferences (user_id, keywords, location_mode, employment_mode, salary_min, salary_max,
			is_active, notification_enabled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+preferenceColumns,
		pref.UserID, pq.Array(keywords), string(pref.LocationMode), string(pref.EmploymentMode),
		toNullInt(pref.SalaryMin), toNullInt(pref.SalaryMax), pref.IsActive, pref.NotificationEnabled, now(),
	).StructScan(&row)
	if err != nil {
		return nil, mapError("insert preference", err)
	}
	return row.toDomain(), nil
}

func (s *PreferenceStore) ListActive(ctx context.Context) ([]*domain.Preference, error) {
	return s.list(ctx, `WHERE is_active`)
}

func (s *PreferenceStore) ListNotifiable(ctx context.Context) ([]*domain.Preference, error) {
	return s.list(ctx, `WHERE is_active AND notification_enabled`)
}

func (s *PreferenceStore) list(ctx context.Context, where string) ([]*domain.Preference, error) {
	var rows []preferenceRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+preferenceColumns+` FROM preferences `+where+` ORDER BY id`); err != nil {
		return nil, mapError("select preferences", err)
	}

	out := make([]*domain.Preference, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
