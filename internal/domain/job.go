package domain

import "time"

// LocationMode describes where the work happens
type LocationMode string

const (
	LocationRemote LocationMode = "remote"
	LocationOnsite LocationMode = "onsite"
	LocationHybrid LocationMode = "hybrid"
)

// EmploymentMode describes the contract type of a posting
type EmploymentMode string

const (
	EmploymentFullTime   EmploymentMode = "full-time"
	EmploymentPartTime   EmploymentMode = "part-time"
	EmploymentContract   EmploymentMode = "contract"
	EmploymentInternship EmploymentMode = "internship"
	EmploymentFreelance  EmploymentMode = "freelance"
)

// Job represents a normalized job posting from any source
type Job struct {
	ID             int64          `json:"id" db:"id"`
	SourceID       int64          `json:"source_id" db:"source_id"`
	Source         string         `json:"source" db:"source"`
	ExternalID     string         `json:"external_id" db:"external_id"`
	Title          string         `json:"title" db:"title"`
	Company        string         `json:"company" db:"company"`
	Location       string         `json:"location" db:"location"`
	LocationMode   LocationMode   `json:"location_mode" db:"location_mode"`
	EmploymentMode EmploymentMode `json:"employment_mode" db:"employment_mode"`
	Description    string         `json:"description" db:"description"`
	Requirements   string         `json:"requirements" db:"requirements"`
	SalaryMin      *int           `json:"salary_min,omitempty" db:"salary_min"`
	SalaryMax      *int           `json:"salary_max,omitempty" db:"salary_max"`
	Currency       string         `json:"currency" db:"currency"`
	Tags           []string       `json:"tags" db:"-"`
	URL            string         `json:"url" db:"url"`
	PostedAt       time.Time      `json:"posted_at" db:"posted_at"`
	IsActive       bool           `json:"is_active" db:"is_active"`

	// CreatedAt is the ingestion time and survives updates, LastSeenAt moves on every upsert
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at" db:"last_seen_at"`
}

// RawJob represents raw extracted data before normalization
type RawJob struct {
	ID          string         `json:"id"`
	URL         string         `json:"url"`
	Source      string         `json:"source"`
	RawData     map[string]any `json:"raw_data"`
	ExtractedAt time.Time      `json:"extracted_at"`
}

// JobSource is an operator-configured external job board
type JobSource struct {
	ID        int64             `json:"id" db:"id"`
	Name      string            `json:"name" db:"name"`
	BaseURL   string            `json:"base_url" db:"base_url"`
	IsActive  bool              `json:"is_active" db:"is_active"`
	Config    map[string]string `json:"config" db:"-"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}

// Preference is a user's standing search
type Preference struct {
	ID                  int64          `json:"id" db:"id"`
	UserID              int64          `json:"user_id" db:"user_id"`
	Keywords            []string       `json:"keywords" db:"-"`
	LocationMode        LocationMode   `json:"location_mode" db:"location_mode"`
	EmploymentMode      EmploymentMode `json:"employment_mode" db:"employment_mode"`
	SalaryMin           *int           `json:"salary_min,omitempty" db:"salary_min"`
	SalaryMax           *int           `json:"salary_max,omitempty" db:"salary_max"`
	IsActive            bool           `json:"is_active" db:"is_active"`
	NotificationEnabled bool           `json:"notification_enabled" db:"notification_enabled"`
	CreatedAt           time.Time      `json:"created_at" db:"created_at"`
}

// Match links a user's preference to a job with a relevance score
type Match struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	JobID        int64     `json:"job_id" db:"job_id"`
	PreferenceID int64     `json:"preference_id" db:"preference_id"`
	Score        float64   `json:"score" db:"score"`
	IsViewed     bool      `json:"is_viewed" db:"is_viewed"`
	IsBookmarked bool      `json:"is_bookmarked" db:"is_bookmarked"`
	IsApplied    bool      `json:"is_applied" db:"is_applied"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// MatchFlags carries user-driven flag changes; nil fields are left untouched
type MatchFlags struct {
	Viewed     *bool `json:"viewed,omitempty"`
	Bookmarked *bool `json:"bookmarked,omitempty"`
	Applied    *bool `json:"applied,omitempty"`
}

// RunStatus is the lifecycle state of a ScrapeRun
type RunStatus string

const (
	RunStarted   RunStatus = "started"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunCounts are the metrics recorded when a run completes
type RunCounts struct {
	Scraped int `json:"jobs_scraped"`
	Created int `json:"jobs_created"`
	Updated int `json:"jobs_updated"`
}

// ScrapeRun is one execution of a scrape against one source
type ScrapeRun struct {
	ID          int64      `json:"id" db:"id"`
	SourceID    int64      `json:"source_id" db:"source_id"`
	SourceName  string     `json:"source_name" db:"source_name"`
	Status      RunStatus  `json:"status" db:"status"`
	JobsScraped int        `json:"jobs_scraped" db:"jobs_scraped"`
	JobsCreated int        `json:"jobs_created" db:"jobs_created"`
	JobsUpdated int        `json:"jobs_updated" db:"jobs_updated"`
	Error       string     `json:"error,omitempty" db:"error"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// Duration is derived from the timestamps, zero while the run is open
func (r *ScrapeRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Notification records the outcome of one alert batch delivery
type Notification struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	MatchIDs  []int64   `json:"match_ids" db:"-"`
	Subject   string    `json:"subject" db:"subject"`
	Sent      bool      `json:"sent" db:"sent"`
	Error     string    `json:"error,omitempty" db:"error"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
