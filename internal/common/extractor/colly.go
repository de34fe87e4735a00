package extractor

import (
	"context"
	"fmt"

	"github.com/gocolly/colly/v2"
	"github.com/project-tktt/job-aggregator/internal/domain"
)

// CollyExtractor implements ListExtractor using Colly for HTML scraping
type CollyExtractor struct {
	collector *colly.Collector
	source    string
	selectors Selectors
}

// NewCollyExtractor creates a new Colly-based HTML scraper
func NewCollyExtractor(source string, selectors Selectors, config Config) *CollyExtractor {
	c := colly.NewCollector(
		colly.UserAgent(config.UserAgent),
		colly.AllowURLRevisit(),
	)
	if config.PageTimeout > 0 {
		c.SetRequestTimeout(config.PageTimeout)
	}

	return &CollyExtractor{
		collector: c,
		source:    source,
		selectors: selectors,
	}
}

type collyCard struct {
	el *colly.HTMLElement
}

func (c collyCard) text(selector string) string {
	return collapse(c.el.ChildText(selector))
}

func (c collyCard) attr(selector, name string) string {
	return c.el.ChildAttr(selector, name)
}

// ExtractList visits a listing page and returns one RawJob per card
func (e *CollyExtractor) ExtractList(ctx context.Context, pageURL string) ([]*domain.RawJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}

	var jobs []*domain.RawJob
	var extractErr error

	collector := e.collector.Clone()

	collector.OnHTML(e.selectors.JobItem, func(el *colly.HTMLElement) {
		jobs = append(jobs, buildRawJob(e.source, el.Request.URL.String(), e.selectors, collyCard{el: el}))
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			extractErr = fmt.Errorf("%w: HTTP %d: %s", domain.ErrSourceUnavailable, r.StatusCode, truncate(string(r.Body), 200))
			return
		}
		extractErr = fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	})

	if err := collector.Visit(pageURL); err != nil && extractErr == nil {
		extractErr = fmt.Errorf("%w: visit %s: %v", domain.ErrSourceUnavailable, pageURL, err)
	}

	if extractErr != nil {
		return nil, extractErr
	}

	return jobs, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
