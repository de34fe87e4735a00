package remoteok

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/project-tktt/job-aggregator/internal/common/logger"
	"github.com/project-tktt/job-aggregator/internal/common/normalizer"
	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/module"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feed = `[
	{"legal": "API terms of service"},
	{"id": "101", "epoch": 1767225600, "company": "Acme", "position": "Senior Python Developer",
	 "tags": ["python", "django"], "description": "<p>Build APIs</p>", "location": "Worldwide",
	 "salary_min": 100000, "salary_max": 140000},
	{"id": "102", "date": "2026-01-02T00:00:00+00:00", "company": "Initech", "position": "Senior Java Engineer",
	 "tags": ["java"], "description": "Spring services"},
	{"id": {"bad": true}, "position": "Broken"},
	{"id": "103", "company": "Globex", "position": "Backend Engineer", "description": "We use Rust and Go"},
	{"id": "104", "company": "Hooli", "position": "", "description": "python but no title"}
]`

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{APIURL: srv.URL + "/api", SiteURL: "https://remoteok.com", PageTimeout: 5 * time.Second},
		normalizer.NewNormalizer(nil), logger.Discard())
}

func TestFetchFiltersByKeyword(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		fmt.Fprint(w, feed)
	})

	jobs, err := a.Fetch(context.Background(), module.FetchRequest{Keywords: []string{"python", "rust"}, MaxPages: 1})
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	py := jobs[0]
	assert.Equal(t, "remoteok_101", py.ExternalID)
	assert.Equal(t, "Senior Python Developer", py.Title)
	assert.Equal(t, "https://remoteok.com/job/101", py.URL)
	assert.Equal(t, domain.LocationRemote, py.LocationMode)
	assert.Equal(t, "USD", py.Currency)
	assert.Equal(t, []string{"python", "django"}, py.Tags)
	assert.Equal(t, 100000, *py.SalaryMin)
	assert.Equal(t, time.Unix(1767225600, 0).UTC(), py.PostedAt)
	assert.Equal(t, "Build APIs", py.Description)

	assert.Equal(t, "remoteok_103", jobs[1].ExternalID)
	for _, j := range jobs {
		assert.NotEqual(t, "Senior Java Engineer", j.Title)
	}
}

func TestFetchWithoutKeywordsKeepsAllValid(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feed)
	})

	jobs, err := a.Fetch(context.Background(), module.FetchRequest{MaxPages: 1})
	require.NoError(t, err)
	// malformed and untitled listings are dropped
	assert.Len(t, jobs, 3)
	assert.Equal(t, time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), jobs[1].PostedAt.UTC())
}

func TestFetchRespectsResultBudget(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feed)
	})

	jobs, err := a.Fetch(context.Background(), module.FetchRequest{MaxPages: 1, Config: map[string]string{"per_page": "2"}})
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestFetchSourceUnavailable(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})

	_, err := a.Fetch(context.Background(), module.FetchRequest{MaxPages: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "HTTP 503: maintenance")
}

func TestFetchInvalidJSON(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not json</html>")
	})

	_, err := a.Fetch(context.Background(), module.FetchRequest{})
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestFetchBaseURLOverride(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		fmt.Fprint(w, `[{"legal":"x"}]`)
	}))
	defer srv.Close()

	a := New(Config{APIURL: "http://127.0.0.1:1/unused"}, normalizer.NewNormalizer(nil), logger.Discard())
	jobs, err := a.Fetch(context.Background(), module.FetchRequest{Config: map[string]string{"base_url": srv.URL}})
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.True(t, hit)
}
