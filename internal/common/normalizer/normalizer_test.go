package normalizer

import (
	"testing"
	"time"

	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSalary(t *testing.T) {
	tests := []struct {
		text    string
		wantMin *int
		wantMax *int
	}{
		{"$80k-$120k", ptr(80000), ptr(120000)},
		{"$95,000", ptr(95000), ptr(95000)},
		{"no salary listed", nil, nil},
		{"", nil, nil},
		{"$100K - $150K per year", ptr(100000), ptr(150000)},
		{"60,000 - 80,000", ptr(60000), ptr(80000)},
		{"Up to $1,200,000", ptr(1200000), ptr(1200000)},
		{"$1.5k", ptr(1500), ptr(1500)},
		{"$3,000,000,000", nil, nil},
		{"$99999999999999999999", nil, nil},
		{"$9999999999999999999k", nil, nil},
		{"$80k-$5,000,000,000", nil, nil},
		{"$2,147,483,647", ptr(2147483647), ptr(2147483647)},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			min, max := ParseSalary(tt.text)
			assert.Equal(t, tt.wantMin, min)
			assert.Equal(t, tt.wantMax, max)
		})
	}
}

func TestMatchesKeywords(t *testing.T) {
	keywords := []string{"python", "rust"}

	assert.False(t, MatchesKeywords(keywords, "Senior Java Engineer", "Spring Boot and Kafka"))
	assert.True(t, MatchesKeywords(keywords, "Python Developer", ""))
	assert.True(t, MatchesKeywords(keywords, "Backend Engineer", "We write RUST services"))
	assert.True(t, MatchesKeywords(nil, "Anything", ""))
	assert.True(t, MatchesKeywords([]string{" ", ""}, "Anything", ""))
}

func TestParseKeywords(t *testing.T) {
	assert.Equal(t, []string{"Go", "postgres", "Redis"}, ParseKeywords(" Go, postgres,,go , Redis ,"))
	assert.Empty(t, ParseKeywords(""))
	assert.Empty(t, ParseKeywords(" , ,"))
}

func TestExternalID(t *testing.T) {
	assert.Equal(t, "remoteok_12345", ExternalID("remoteok", "12345", "https://remoteok.com/job/12345"))

	first := ExternalID("indeed", "", "https://indeed.com/viewjob?jk=abc")
	second := ExternalID("indeed", "", "https://indeed.com/viewjob?jk=abc")
	assert.Equal(t, first, second)
	assert.Regexp(t, `^indeed_[0-9a-f]{32}$`, first)
	assert.NotEqual(t, first, ExternalID("indeed", "", "https://indeed.com/viewjob?jk=xyz"))

	assert.Empty(t, ExternalID("indeed", "", ""))
}

func TestLocationAndEmploymentModes(t *testing.T) {
	assert.Equal(t, domain.LocationRemote, LocationModeOf("", "Remote, US"))
	assert.Equal(t, domain.LocationHybrid, LocationModeOf("hybrid", "Berlin"))
	assert.Equal(t, domain.LocationOnsite, LocationModeOf("", "Austin, TX"))

	assert.Equal(t, domain.EmploymentPartTime, EmploymentModeOf("Part-time"))
	assert.Equal(t, domain.EmploymentContract, EmploymentModeOf("Contract"))
	assert.Equal(t, domain.EmploymentInternship, EmploymentModeOf("Internship"))
	assert.Equal(t, domain.EmploymentFullTime, EmploymentModeOf(""))
}

func TestNormalize(t *testing.T) {
	n := NewNormalizer(nil)
	extracted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	job, err := n.Normalize(&domain.RawJob{
		ID:     "777",
		URL:    "https://remoteok.com/job/777",
		Source: "remoteok",
		RawData: map[string]any{
			"title":         "Go Engineer",
			"company":       "Acme &amp; Co",
			"location":      "Worldwide",
			"location_type": "remote",
			"description":   "<p>Build <b>services</b></p>",
			"salary_min":    float64(90000),
			"salary_max":    float64(130000),
			"tags":          []any{"Go", "golang", "go"},
			"posted_at":     float64(1767225600),
		},
		ExtractedAt: extracted,
	})
	require.NoError(t, err)

	assert.Equal(t, "remoteok_777", job.ExternalID)
	assert.Equal(t, "Acme & Co", job.Company)
	assert.Equal(t, "Build services", job.Description)
	assert.Equal(t, domain.LocationRemote, job.LocationMode)
	assert.Equal(t, domain.EmploymentFullTime, job.EmploymentMode)
	assert.Equal(t, 90000, *job.SalaryMin)
	assert.Equal(t, 130000, *job.SalaryMax)
	assert.Equal(t, "USD", job.Currency)
	assert.Equal(t, []string{"go", "golang"}, job.Tags)
	assert.Equal(t, time.Unix(1767225600, 0).UTC(), job.PostedAt)
	assert.True(t, job.IsActive)
}

func TestNormalizeSalaryTextAndFallbackDate(t *testing.T) {
	n := NewNormalizer(nil)
	extracted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	job, err := n.Normalize(&domain.RawJob{
		URL:    "https://indeed.com/viewjob?jk=abc",
		Source: "indeed",
		RawData: map[string]any{
			"title":  "Data Engineer",
			"salary": "$80k-$120k a year",
		},
		ExtractedAt: extracted,
	})
	require.NoError(t, err)

	assert.Equal(t, ExternalID("indeed", "", "https://indeed.com/viewjob?jk=abc"), job.ExternalID)
	assert.Equal(t, 80000, *job.SalaryMin)
	assert.Equal(t, 120000, *job.SalaryMax)
	assert.Equal(t, extracted, job.PostedAt)
}

func TestNormalizeDropsOutOfRangeSalary(t *testing.T) {
	n := NewNormalizer(nil)

	job, err := n.Normalize(&domain.RawJob{
		ID:     "9",
		URL:    "https://remoteok.com/job/9",
		Source: "remoteok",
		RawData: map[string]any{
			"title":      "Go Engineer",
			"salary_min": float64(5e9),
			"salary_max": float64(-1),
			"salary":     "$99999999999999999999",
		},
		ExtractedAt: time.Now(),
	})
	require.NoError(t, err)

	assert.Nil(t, job.SalaryMin)
	assert.Nil(t, job.SalaryMax)
}

func TestNormalizeParseFailures(t *testing.T) {
	n := NewNormalizer(nil)

	tests := []struct {
		name string
		raw  *domain.RawJob
	}{
		{"nil listing", nil},
		{"no data", &domain.RawJob{Source: "indeed"}},
		{"missing title", &domain.RawJob{Source: "indeed", URL: "https://x", RawData: map[string]any{"company": "Acme"}}},
		{"missing identity", &domain.RawJob{Source: "indeed", RawData: map[string]any{"title": "Engineer"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize(tt.raw)
			assert.ErrorIs(t, err, domain.ErrParseFailure)
		})
	}
}

func ptr(v int) *int { return &v }
