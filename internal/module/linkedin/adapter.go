package linkedin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/project-tktt/job-aggregator/internal/common/extractor"
	"github.com/project-tktt/job-aggregator/internal/common/normalizer"
	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/module"
)

const (
	Name = "linkedin"

	SearchURL   = "https://www.linkedin.com/jobs-guest/jobs/api/seeMoreJobPostings/search"
	JobsPerPage = 25
	PageDelay   = 2 * time.Second
)

// Selectors for LinkedIn's guest search cards
var Selectors = extractor.Selectors{
	JobItem:  "div.base-card",
	Title:    "h3.base-search-card__title",
	Company:  "a.hidden-nested-link",
	Location: "span.job-search-card__location",
	Link:     "a.base-card__full-link",
	PostedAt: "time",
}

// Adapter fetches LinkedIn's guest search pages and parses them with goquery
type Adapter struct {
	client *http.Client
	config Config
	norm   *normalizer.Normalizer
	logger *slog.Logger
}

// Config holds LinkedIn-specific configuration
type Config struct {
	SearchURL   string
	UserAgent   string
	PageTimeout time.Duration
	PageDelay   time.Duration
}

// New creates a LinkedIn adapter
func New(cfg Config, norm *normalizer.Normalizer, logger *slog.Logger) *Adapter {
	if cfg.SearchURL == "" {
		cfg.SearchURL = SearchURL
	}
	if cfg.PageDelay == 0 {
		cfg.PageDelay = PageDelay
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (compatible; job-aggregator)"
	}

	return &Adapter{
		client: &http.Client{Timeout: cfg.PageTimeout},
		config: cfg,
		norm:   norm,
		logger: logger.With(slog.String("source", Name)),
	}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Fetch(ctx context.Context, req module.FetchRequest) ([]*domain.Job, error) {
	base := module.ConfigString(req.Config, "base_url", a.config.SearchURL)
	perPage := module.ConfigInt(req.Config, "per_page", JobsPerPage)

	raws, err := module.FetchPages(ctx, req.MaxPages, a.config.PageDelay, func(ctx context.Context, page int) ([]*domain.RawJob, error) {
		return a.fetchPage(ctx, pageURL(base, req.Keywords, req.Location, page*perPage))
	}, a.logger)
	if err != nil {
		return nil, err
	}

	jobs := module.Collect(a.norm, raws, req.Keywords, false, a.logger)
	a.logger.Info("Fetched jobs", slog.Int("listings", len(raws)), slog.Int("kept", len(jobs)))
	return jobs, nil
}

func (a *Adapter) fetchPage(ctx context.Context, pageURL string) ([]*domain.RawJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", a.config.UserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: do request: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("%w: HTTP %d: %s", domain.ErrSourceUnavailable, resp.StatusCode, string(body))
	}

	raws, err := extractor.ParseCards(resp.Body, Name, pageURL, Selectors)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	return raws, nil
}

func pageURL(base string, keywords []string, location string, start int) string {
	q := url.Values{}
	q.Set("keywords", module.SearchQuery(keywords))
	q.Set("location", location)
	q.Set("start", strconv.Itoa(start))

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

var _ module.SourceAdapter = (*Adapter)(nil)
