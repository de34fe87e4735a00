package extractor

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
	"github.com/project-tktt/job-aggregator/internal/domain"
)

type queryCard struct {
	s *goquery.Selection
}

func (c queryCard) text(selector string) string {
	return collapse(c.s.Find(selector).First().Text())
}

func (c queryCard) attr(selector, name string) string {
	v, _ := c.s.Find(selector).First().Attr(name)
	return v
}

// ParseCards parses an already fetched listing page with goquery
func ParseCards(r io.Reader, source, pageURL string, sel Selectors) ([]*domain.RawJob, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var jobs []*domain.RawJob
	doc.Find(sel.JobItem).Each(func(_ int, s *goquery.Selection) {
		jobs = append(jobs, buildRawJob(source, pageURL, sel, queryCard{s: s}))
	})

	return jobs, nil
}
