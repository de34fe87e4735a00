package module

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/project-tktt/job-aggregator/internal/common/normalizer"
	"github.com/project-tktt/job-aggregator/internal/domain"
)

// FetchRequest is what an adapter is asked to fetch
type FetchRequest struct {
	Keywords []string          `json:"keywords"`
	Location string            `json:"location"`
	MaxPages int               `json:"max_pages"`
	Config   map[string]string `json:"config"`
}

// SourceAdapter fetches postings from one external source and normalizes them.
// Malformed listings are skipped; an error means the source as a whole was unusable.
type SourceAdapter interface {
	Name() string
	Fetch(ctx context.Context, req FetchRequest) ([]*domain.Job, error)
}

// Registry maps source names to adapters
type Registry struct {
	adapters map[string]SourceAdapter
}

// NewRegistry builds a registry; a later adapter with the same name replaces an earlier one
func NewRegistry(adapters ...SourceAdapter) *Registry {
	r := &Registry{adapters: make(map[string]SourceAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Get returns domain.ErrUnknownSource for unregistered names
func (r *Registry) Get(name string) (SourceAdapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSource, name)
	}
	return a, nil
}

// Names returns registered source names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PageFunc fetches one zero-based page of raw listings
type PageFunc func(ctx context.Context, page int) ([]*domain.RawJob, error)

// FetchPages walks pages in order up to maxPages, sleeping delay between fetches.
// It stops early on an empty page. A failure on the first page is returned as
// ErrSourceUnavailable; a later failure keeps what was already fetched.
func FetchPages(ctx context.Context, maxPages int, delay time.Duration, fetch PageFunc, logger *slog.Logger) ([]*domain.RawJob, error) {
	if maxPages <= 0 {
		maxPages = 1
	}

	var all []*domain.RawJob
	for page := 0; page < maxPages; page++ {
		if page > 0 && delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				break
			}
		}

		raws, err := fetch(ctx, page)
		if err != nil {
			if page == 0 {
				if errors.Is(err, domain.ErrSourceUnavailable) {
					return nil, err
				}
				return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
			}
			logger.Warn("Stopping pagination after page failure",
				slog.Int("page", page),
				slog.Int("kept", len(all)),
				slog.Any("error", err),
			)
			break
		}

		logger.Debug("Fetched page", slog.Int("page", page), slog.Int("listings", len(raws)))
		if len(raws) == 0 {
			break
		}
		all = append(all, raws...)
	}

	return all, nil
}

// Collect normalizes raw listings, skipping parse failures and, when filter is set,
// listings whose title and description match none of the keywords
func Collect(norm *normalizer.Normalizer, raws []*domain.RawJob, keywords []string, filter bool, logger *slog.Logger) []*domain.Job {
	jobs := make([]*domain.Job, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))

	for _, raw := range raws {
		job, err := norm.Normalize(raw)
		if err != nil {
			logger.Warn("Skipping listing", slog.String("url", raw.URL), slog.Any("error", err))
			continue
		}
		if filter && !normalizer.MatchesKeywords(keywords, job.Title, job.Description) {
			continue
		}
		if _, dup := seen[job.ExternalID]; dup {
			continue
		}
		seen[job.ExternalID] = struct{}{}
		jobs = append(jobs, job)
	}

	return jobs
}

// DefaultQuery is searched on boards that need a query when no keywords are given
const DefaultQuery = "developer"

// SearchQuery joins the non-blank keywords with spaces, falling back to DefaultQuery
func SearchQuery(keywords []string) string {
	terms := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			terms = append(terms, kw)
		}
	}
	if len(terms) == 0 {
		return DefaultQuery
	}
	return strings.Join(terms, " ")
}

// ConfigString reads a source config value with a fallback
func ConfigString(cfg map[string]string, key, fallback string) string {
	if v := strings.TrimSpace(cfg[key]); v != "" {
		return v
	}
	return fallback
}

// ConfigInt reads a positive integer source config value with a fallback
func ConfigInt(cfg map[string]string, key string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(cfg[key])); err == nil && v > 0 {
		return v
	}
	return fallback
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
