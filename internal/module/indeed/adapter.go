package indeed

import (
	"context"
	"log/slog"
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
	Name = "indeed"

	SearchURL   = "https://www.indeed.com/jobs"
	JobsPerPage = 10
	PageDelay   = 1 * time.Second
)

// Selectors for Indeed's search result cards
var Selectors = extractor.Selectors{
	JobItem:     "div.job_seen_beacon",
	Title:       "h2.jobTitle",
	Company:     "span.companyName",
	Location:    "div.companyLocation",
	Salary:      "span.salaryText",
	Description: "div.summary",
	Link:        "h2.jobTitle a",
}

// Adapter scrapes Indeed's HTML search pages with Colly. Keywords go to the server as q.
type Adapter struct {
	extractor extractor.ListExtractor
	config    Config
	norm      *normalizer.Normalizer
	logger    *slog.Logger
}

// Config holds Indeed-specific configuration
type Config struct {
	SearchURL   string
	UserAgent   string
	PageTimeout time.Duration
	PageDelay   time.Duration
}

// New creates an Indeed adapter
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

	return &Adapter{
		extractor: extractor.NewCollyExtractor(Name, Selectors, extractor.Config{
			UserAgent:   cfg.UserAgent,
			PageTimeout: cfg.PageTimeout,
		}),
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
		return a.extractor.ExtractList(ctx, pageURL(base, req.Keywords, req.Location, page*perPage))
	}, a.logger)
	if err != nil {
		return nil, err
	}

	jobs := module.Collect(a.norm, raws, req.Keywords, false, a.logger)
	a.logger.Info("Fetched jobs", slog.Int("listings", len(raws)), slog.Int("kept", len(jobs)))
	return jobs, nil
}

func pageURL(base string, keywords []string, location string, start int) string {
	q := url.Values{}
	q.Set("q", module.SearchQuery(keywords))
	q.Set("l", location)
	q.Set("start", strconv.Itoa(start))

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

var _ module.SourceAdapter = (*Adapter)(nil)
