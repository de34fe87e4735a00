package module

import "github.com/project-tktt/job-aggregator/internal/domain"

const (
	ScrapeStatusSuccess = "success"
	ScrapeStatusFailed  = "failed"
)

// ScrapeRequest is the body of POST /scrape/{source_name}
type ScrapeRequest struct {
	Keywords []string          `json:"keywords"`
	Location string            `json:"location"`
	MaxPages int               `json:"max_pages"`
	Config   map[string]string `json:"config"`
}

// ScrapeResponse is returned by the scrape trigger service
type ScrapeResponse struct {
	JobsScraped int           `json:"jobs_scraped"`
	JobsCreated int           `json:"jobs_created"`
	JobsUpdated int           `json:"jobs_updated"`
	Status      string        `json:"status"`
	Error       string        `json:"error,omitempty"`
	ScraperName string        `json:"scraper_name"`
	Duration    float64       `json:"duration"`
	Jobs        []*domain.Job `json:"jobs"`
}

func (r ScrapeRequest) FetchRequest() FetchRequest {
	return FetchRequest{
		Keywords: r.Keywords,
		Location: r.Location,
		MaxPages: r.MaxPages,
		Config:   r.Config,
	}
}
