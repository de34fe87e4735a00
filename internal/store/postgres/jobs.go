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

var _ store.JobStore = (*JobStore)(nil)

// JobStore is the PostgreSQL implementation of store.JobStore
type JobStore struct {
	db *sqlx.DB
}

// NewJobStore creates a Postgres-backed JobStore
func NewJobStore(db *sqlx.DB) *JobStore {
	return &JobStore{db: db}
}

type jobRow struct {
	ID             int64          `db:"id"`
	SourceID       int64          `db:"source_id"`
	Source         string         `db:"source"`
	ExternalID     string         `db:"external_id"`
	Title          string         `db:"title"`
	Company        string         `db:"company"`
	Location       string         `db:"location"`
	LocationMode   string         `db:"location_mode"`
	EmploymentMode string         `db:"employment_mode"`
	Description    string         `db:"description"`
	Requirements   string         `db:"requirements"`
	SalaryMin      sql.NullInt64  `db:"salary_min"`
	SalaryMax      sql.NullInt64  `db:"salary_max"`
	Currency       string         `db:"currency"`
	Tags           pq.StringArray `db:"tags"`
	URL            string         `db:"url"`
	PostedAt       time.Time      `db:"posted_at"`
	IsActive       bool           `db:"is_active"`
	CreatedAt      time.Time      `db:"created_at"`
	LastSeenAt     time.Time      `db:"last_seen_at"`
}

func (r jobRow) toDomain() *domain.Job {
	return &domain.Job{
		ID:             r.ID,
		SourceID:       r.SourceID,
		Source:         r.Source,
		ExternalID:     r.ExternalID,
		Title:          r.Title,
		Company:        r.Company,
		Location:       r.Location,
		LocationMode:   domain.LocationMode(r.LocationMode),
		EmploymentMode: domain.EmploymentMode(r.EmploymentMode),
		Description:    r.Description,
		Requirements:   r.Requirements,
		SalaryMin:      fromNullInt(r.SalaryMin),
		SalaryMax:      fromNullInt(r.SalaryMax),
		Currency:       r.Currency,
		Tags:           []string(r.Tags),
		URL:            r.URL,
		PostedAt:       r.PostedAt,
		IsActive:       r.IsActive,
		CreatedAt:      r.CreatedAt,
		LastSeenAt:     r.LastSeenAt,
	}
}

const jobColumns = `id, source_id, source, external_id, title, company, location, location_mode,
	employment_mode, description, requirements, salary_min, salary_max, currency, tags, url,
	posted_at, is_active, created_at, last_seen_at`

// Upsert relies on ON CONFLICT (source, external_id). xmax is zero only for freshly inserted rows.
func (s *JobStore) Upsert(ctx context.Context, job *domain.Job) (*domain.Job, bool, error) {
	query := `
		INSERT INTO jobs (
			source_id, source, external_id, title, company, location, location_mode,
			employment_mode, description, requirements, salary_min, salary_max, currency,
			tags, url, posted_at, is_active, created_at, last_seen_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $18
		)
		ON CONFLICT (source, external_id) DO UPDATE SET
			source_id = EXCLUDED.source_id,
			title = EXCLUDED.title,
			company = EXCLUDED.company,
			location = EXCLUDED.location,
			location_mode = EXCLUDED.location_mode,
			employment_mode = EXCLUDED.employment_mode,
			description = EXCLUDED.description,
			requirements = EXCLUDED.requirements,
			salary_min = EXCLUDED.salary_min,
			salary_max = EXCLUDED.salary_max,
			currency = EXCLUDED.currency,
			tags = EXCLUDED.tags,
			url = EXCLUDED.url,
			posted_at = EXCLUDED.posted_at,
			is_active = EXCLUDED.is_active,
			last_seen_at = EXCLUDED.last_seen_at
		RETURNING ` + jobColumns + `, (xmax = 0) AS inserted`

	tags := job.Tags
	if tags == nil {
		tags = []string{}
	}

	var row struct {
		jobRow
		Inserted bool `db:"inserted"`
	}
	err := s.db.QueryRowxContext(ctx, query,
		job.SourceID, job.Source, job.ExternalID, job.Title, job.Company, job.Location, string(job.LocationMode),
		string(job.EmploymentMode), job.Description, job.Requirements, toNullInt(job.SalaryMin), toNullInt(job.SalaryMax), job.Currency,
		pq.Array(tags), job.URL, job.PostedAt, job.IsActive, now(),
	).StructScan(&row)
	if err != nil {
		return nil, false, mapError("upsert job", err)
	}

	return row.jobRow.toDomain(), row.Inserted, nil
}

func (s *JobStore) RecentBySource(ctx context.Context, sourceID int64, since time.Time) ([]*domain.Job, error) {
	var rows []jobRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+jobColumns+` FROM jobs WHERE source_id = $1 AND is_active AND last_seen_at >= $2 ORDER BY id`,
		sourceID, since)
	if err != nil {
		return nil, mapError("select recent jobs", err)
	}
	return jobsToDomain(rows), nil
}

func (s *JobStore) GetByIDs(ctx context.Context, ids []int64) ([]*domain.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []jobRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+jobColumns+` FROM jobs WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, mapError("select jobs by id", err)
	}
	return jobsToDomain(rows), nil
}

func jobsToDomain(rows []jobRow) []*domain.Job {
	out := make([]*domain.Job, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out
}

func toNullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func fromNullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
