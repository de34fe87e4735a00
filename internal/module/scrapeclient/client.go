package scrapeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/module"
)

const DefaultTimeout = 300 * time.Second

// Client calls the scrape trigger service over HTTP
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a client for the scrape service at baseURL
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Scrape triggers one scraper run on the service and returns its response.
// Transport failures and non-2xx statuses are ErrSourceUnavailable.
func (c *Client) Scrape(ctx context.Context, name string, req module.ScrapeRequest) (*module.ScrapeResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scrape/"+name, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: do request: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSource, name)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return nil, fmt.Errorf("%w: HTTP %d: %s", domain.ErrSourceUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out module.ScrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrSourceUnavailable, err)
	}
	return &out, nil
}

// Scrapers lists the adapter names the service exposes
func (c *Client) Scrapers(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/scrapers", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: do request: %v", domain.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", domain.ErrSourceUnavailable, resp.StatusCode)
	}

	var out struct {
		Scrapers []string `json:"scrapers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Scrapers, nil
}

// Adapter is a SourceAdapter whose fetching happens on the scrape service
type Adapter struct {
	name   string
	client *Client
}

// NewAdapter wraps one remote scraper
func (c *Client) NewAdapter(name string) *Adapter {
	return &Adapter{name: name, client: c}
}

// Registry builds a registry of remote adapters for the given names
func (c *Client) Registry(names ...string) *module.Registry {
	adapters := make([]module.SourceAdapter, 0, len(names))
	for _, name := range names {
		adapters = append(adapters, c.NewAdapter(name))
	}
	return module.NewRegistry(adapters...)
}

func (a *Adapter) Name() string { return a.name }

func (a *Adapter) Fetch(ctx context.Context, req module.FetchRequest) ([]*domain.Job, error) {
	resp, err := a.client.Scrape(ctx, a.name, module.ScrapeRequest{
		Keywords: req.Keywords,
		Location: req.Location,
		MaxPages: req.MaxPages,
		Config:   req.Config,
	})
	if err != nil {
		return nil, err
	}

	if resp.Status == module.ScrapeStatusFailed {
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, resp.Error)
	}

	a.client.logger.Debug("Remote scrape finished",
		slog.String("source", a.name),
		slog.Int("jobs", len(resp.Jobs)),
		slog.Float64("duration_s", resp.Duration),
	)
	return resp.Jobs, nil
}

var _ module.SourceAdapter = (*Adapter)(nil)
