package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/store"
)

var _ store.SourceStore = (*SourceStore)(nil)

// SourceStore is the PostgreSQL implementation of store.SourceStore
type SourceStore struct {
	db *sqlx.DB
}

// NewSourceStore creates a Postgres-backed SourceStore
func NewSourceStore(db *sqlx.DB) *SourceStore {
	return &SourceStore{db: db}
}

type sourceRow struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	BaseURL   string    `db:"base_url"`
	IsActive  bool      `db:"is_active"`
	Config    []byte    `db:"config"`
	CreatedAt time.Time `db:"created_at"`
}

func (r sourceRow) toDomain() (*domain.JobSource, error) {
	cfg := map[string]string{}
	if len(r.Config) > 0 {
		if err := json.Unmarshal(r.Config, &cfg); err != nil {
			return nil, fmt.Errorf("decode config for source %s: %w", r.Name, err)
		}
	}
	return &domain.JobSource{
		ID:        r.ID,
		Name:      r.Name,
		BaseURL:   r.BaseURL,
		IsActive:  r.IsActive,
		Config:    cfg,
		CreatedAt: r.CreatedAt,
	}, nil
}

const sourceColumns = `id, name, base_url, is_active, config, created_at`

func (s *SourceStore) ListActive(ctx context.Context) ([]*domain.JobSource, error) {
	var rows []sourceRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT `+sourceColumns+` FROM job_sources WHERE is_active ORDER BY id`); err != nil {
		return nil, mapError("select active sources", err)
	}

	out := make([]*domain.JobSource, 0, len(rows))
	for _, r := range rows {
		src, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

func (s *SourceStore) GetByName(ctx context.Context, name string) (*domain.JobSource, error) {
	var row sourceRow
	err := s.db.GetContext(ctx, &row, `SELECT `+sourceColumns+` FROM job_sources WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSource, name)
	}
	if err != nil {
		return nil, mapError("select source", err)
	}
	return row.toDomain()
}

// Register inserts the source once; an existing row with the same name is returned untouched
func (s *SourceStore) Register(ctx context.Context, source *domain.JobSource) (*domain.JobSource, error) {
	cfg := source.Config
	if cfg == nil {
		cfg = map[string]string{}
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode source config: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO job_sources (name, base_url, is_active, config, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO NOTHING`,
		source.Name, source.BaseURL, source.IsActive, cfgJSON, now()); err != nil {
		return nil, mapError("register source", err)
	}

	return s.GetByName(ctx, source.Name)
}
