package remoteok

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/project-tktt/job-aggregator/internal/common/normalizer"
	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/module"
)

const (
	Name = "remoteok"

	APIURL  = "https://remoteok.com/api"
	SiteURL = "https://remoteok.com"
	// The API returns everything in one response; pages only size the result budget
	JobsPerPage = 25
)

// Adapter fetches RemoteOK's public JSON feed. The feed has no server-side search,
// so keywords are applied client-side.
type Adapter struct {
	client     *http.Client
	config     Config
	normalizer *normalizer.Normalizer
	logger     *slog.Logger
}

// Config holds RemoteOK-specific configuration
type Config struct {
	APIURL      string
	SiteURL     string
	UserAgent   string
	PageTimeout time.Duration
}

// JobData is one posting in the feed
type JobData struct {
	ID          json.Number `json:"id"`
	Slug        string      `json:"slug"`
	Epoch       json.Number `json:"epoch"`
	Date        string      `json:"date"`
	Company     string      `json:"company"`
	Position    string      `json:"position"`
	Tags        []string    `json:"tags"`
	Description string      `json:"description"`
	Location    string      `json:"location"`
	SalaryMin   int         `json:"salary_min"`
	SalaryMax   int         `json:"salary_max"`
	URL         string      `json:"url"`
}

// New creates a RemoteOK adapter
func New(cfg Config, norm *normalizer.Normalizer, logger *slog.Logger) *Adapter {
	if cfg.APIURL == "" {
		cfg.APIURL = APIURL
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = SiteURL
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Mozilla/5.0 (compatible; job-aggregator)"
	}

	return &Adapter{
		client:     &http.Client{Timeout: cfg.PageTimeout},
		config:     cfg,
		normalizer: norm,
		logger:     logger.With(slog.String("source", Name)),
	}
}

func (a *Adapter) Name() string { return Name }

// Fetch downloads the feed, keeps at most MaxPages*25 keyword-matching postings
func (a *Adapter) Fetch(ctx context.Context, req module.FetchRequest) ([]*domain.Job, error) {
	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}
	budget := maxPages * module.ConfigInt(req.Config, "per_page", JobsPerPage)

	raws, err := a.fetchFeed(ctx, module.ConfigString(req.Config, "base_url", a.config.APIURL))
	if err != nil {
		return nil, err
	}

	jobs := module.Collect(a.normalizer, raws, req.Keywords, true, a.logger)
	if len(jobs) > budget {
		jobs = jobs[:budget]
	}

	a.logger.Info("Fetched jobs", slog.Int("listings", len(raws)), slog.Int("kept", len(jobs)))
	return jobs, nil
}

func (a *Adapter) fetchFeed(ctx context.Context, url string) ([]*domain.RawJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", a.config.UserAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: do request: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrSourceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d: %s", domain.ErrSourceUnavailable, resp.StatusCode, truncate(string(body), 200))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: parse response: %v", domain.ErrSourceUnavailable, err)
	}

	// items[0] is the legal notice
	if len(items) > 0 {
		items = items[1:]
	}

	raws := make([]*domain.RawJob, 0, len(items))
	now := time.Now().UTC()
	for i, item := range items {
		var data JobData
		if err := json.Unmarshal(item, &data); err != nil {
			a.logger.Warn("Skipping malformed listing", slog.Int("index", i), slog.Any("error", err))
			continue
		}
		raws = append(raws, a.toRaw(data, now))
	}

	return raws, nil
}

func (a *Adapter) toRaw(item JobData, now time.Time) *domain.RawJob {
	id := item.ID.String()
	jobURL := ""
	if id != "" {
		jobURL = fmt.Sprintf("%s/job/%s", a.config.SiteURL, id)
	}
	if jobURL == "" {
		jobURL = item.URL
	}

	data := map[string]any{
		"title":         item.Position,
		"company":       item.Company,
		"location":      item.Location,
		"location_type": "remote",
		"description":   item.Description,
		"tags":          item.Tags,
		"currency":      "USD",
		"salary_min":    item.SalaryMin,
		"salary_max":    item.SalaryMax,
	}
	if epoch, err := item.Epoch.Int64(); err == nil && epoch > 0 {
		data["posted_at"] = epoch
	} else if item.Date != "" {
		data["posted_at"] = item.Date
	}

	return &domain.RawJob{
		ID:          id,
		URL:         jobURL,
		Source:      Name,
		RawData:     data,
		ExtractedAt: now,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ module.SourceAdapter = (*Adapter)(nil)
