package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/store"
)

var _ store.MatchStore = (*MatchStore)(nil)

// MatchStore is the PostgreSQL implementation of store.MatchStore
type MatchStore struct {
	db *sqlx.DB
}

// NewMatchStore creates a Postgres-backed MatchStore
func NewMatchStore(db *sqlx.DB) *MatchStore {
	return &MatchStore{db: db}
}

const matchColumns = `id, user_id, job_id, preference_id, score, is_viewed, is_bookmarked, is_applied, created_at`

func (s *MatchStore) Exists(ctx context.Context, userID, jobID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM matches WHERE user_id = $1 AND job_id = $2)`, userID, jobID)
	if err != nil {
		return false, mapError("check match", err)
	}
	return exists, nil
}

// CreateIfAbsent inserts with ON CONFLICT DO NOTHING and reads the winner back when it loses
func (s *MatchStore) CreateIfAbsent(ctx context.Context, match *domain.Match) (*domain.Match, bool, error) {
	var m domain.Match
	err := s.db.QueryRowxContext(ctx, `
		INSERT INTO matches (user_id, job_id, preference_id, score, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, job_id) DO NOTHING
		RETURNING `+matchColumns,
		match.UserID, match.JobID, match.PreferenceID, match.Score, now(),
	).StructScan(&m)
	if err == nil {
		return &m, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, mapError("insert match", err)
	}

	if err := s.db.GetContext(ctx, &m,
		`SELECT `+matchColumns+` FROM matches WHERE user_id = $1 AND job_id = $2`,
		match.UserID, match.JobID); err != nil {
		return nil, false, mapError("select existing match", err)
	}
	return &m, false, nil
}

func (s *MatchStore) UnviewedSince(ctx context.Context, userID int64, since time.Time) ([]*domain.Match, error) {
	var rows []*domain.Match
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+matchColumns+` FROM matches
		WHERE user_id = $1 AND NOT is_viewed AND created_at >= $2 ORDER BY id`,
		userID, since); err != nil {
		return nil, mapError("select unviewed matches", err)
	}
	return rows, nil
}

func (s *MatchStore) GetByIDs(ctx context.Context, ids []int64) ([]*domain.Match, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []*domain.Match
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+matchColumns+` FROM matches WHERE id = ANY($1) ORDER BY id`, pq.Array(ids)); err != nil {
		return nil, mapError("select matches by id", err)
	}
	return rows, nil
}

func (s *MatchStore) SetFlags(ctx context.Context, id int64, flags domain.MatchFlags) (*domain.Match, error) {
	var m domain.Match
	err := s.db.QueryRowxContext(ctx, `
		UPDATE matches SET
			is_viewed = COALESCE($2, is_viewed),
			is_bookmarked = COALESCE($3, is_bookmarked),
			is_applied = COALESCE($4, is_applied)
		WHERE id = $1
		RETURNING `+matchColumns,
		id, toNullBool(flags.Viewed), toNullBool(flags.Bookmarked), toNullBool(flags.Applied),
	).StructScan(&m)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, mapError("update match flags", err)
	}
	return &m, nil
}

func toNullBool(v *bool) sql.NullBool {
	if v == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *v, Valid: true}
}
