package indexer

import (
	"context"

	"github.com/project-tktt/job-aggregator/internal/domain"
)

// Indexer defines the interface for job search backends
type Indexer interface {
	// BulkIndex indexes multiple jobs at once
	BulkIndex(ctx context.Context, jobs []*domain.Job) error
}

// Nop discards everything, used when no search backend is configured
type Nop struct{}

func (Nop) BulkIndex(context.Context, []*domain.Job) error { return nil }
