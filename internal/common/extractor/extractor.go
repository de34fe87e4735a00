package extractor

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/project-tktt/job-aggregator/internal/domain"
)

// ListExtractor fetches one listing page and returns its cards as raw listings
type ListExtractor interface {
	ExtractList(ctx context.Context, pageURL string) ([]*domain.RawJob, error)
}

// Config holds common configuration for extractors
type Config struct {
	UserAgent   string
	PageTimeout time.Duration
}

// Selectors defines CSS selectors for the cards on a listing page
type Selectors struct {
	JobItem     string
	Title       string
	Company     string
	Location    string
	Salary      string
	Description string
	Link        string
	// LinkAttr defaults to href
	LinkAttr string
	// PostedAt is read from the datetime attribute when present
	PostedAt string
}

func (s Selectors) linkAttr() string {
	if s.LinkAttr == "" {
		return "href"
	}
	return s.LinkAttr
}

// card is the subset of a DOM selection both colly and goquery can provide
type card interface {
	text(selector string) string
	attr(selector, name string) string
}

func buildRawJob(source, pageURL string, sel Selectors, c card) *domain.RawJob {
	data := map[string]any{}
	set := func(key, selector string) {
		if selector == "" {
			return
		}
		if v := c.text(selector); v != "" {
			data[key] = v
		}
	}
	set("title", sel.Title)
	set("company", sel.Company)
	set("location", sel.Location)
	set("salary", sel.Salary)
	set("description", sel.Description)

	if sel.PostedAt != "" {
		if v := c.attr(sel.PostedAt, "datetime"); v != "" {
			data["posted_at"] = v
		}
	}

	link := ""
	if sel.Link != "" {
		link = absoluteURL(pageURL, c.attr(sel.Link, sel.linkAttr()))
	}

	return &domain.RawJob{
		URL:         link,
		Source:      source,
		RawData:     data,
		ExtractedAt: time.Now(),
	}
}

func absoluteURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
