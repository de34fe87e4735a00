package indeed

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

func card(id, title, company, location string) string {
	return fmt.Sprintf(`<div class="job_seen_beacon">
  <h2 class="jobTitle"><a href="/viewjob?jk=%s">%s</a></h2>
  <span class="companyName">%s</span>
  <div class="companyLocation">%s</div>
  <span class="salaryText">$120,000 - $150,000 a year</span>
  <div class="summary">Design and build services.</div>
</div>`, id, title, company, location)
}

func page(cards ...string) string {
	body := "<html><body>"
	for _, c := range cards {
		body += c
	}
	return body + "</body></html>"
}

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{SearchURL: srv.URL + "/jobs", PageDelay: time.Millisecond, PageTimeout: 5 * time.Second},
		normalizer.NewNormalizer(nil), logger.Discard())
}

func TestFetchPaginatesUntilFailure(t *testing.T) {
	var starts []string
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		starts = append(starts, q.Get("start"))
		assert.Equal(t, "golang backend", q.Get("q"))
		assert.Equal(t, "Austin, TX", q.Get("l"))

		switch q.Get("start") {
		case "0":
			fmt.Fprint(w, page(card("a1", "Go Developer", "Acme", "Remote"), card("a2", "Backend Engineer", "Globex", "Austin, TX")))
		case "10":
			fmt.Fprint(w, page(card("a3", "Platform Engineer", "Initech", "Hybrid remote in Austin, TX")))
		default:
			http.Error(w, "captcha", http.StatusForbidden)
		}
	})

	jobs, err := a.Fetch(context.Background(), module.FetchRequest{
		Keywords: []string{"golang", "backend"},
		Location: "Austin, TX",
		MaxPages: 5,
	})
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{"0", "10", "20"}, starts)

	first := jobs[0]
	assert.Equal(t, "Go Developer", first.Title)
	assert.Equal(t, "Acme", first.Company)
	assert.Contains(t, first.URL, "/viewjob?jk=a1")
	assert.Equal(t, normalizer.ExternalID(Name, "", first.URL), first.ExternalID)
	assert.Equal(t, domain.LocationRemote, first.LocationMode)
	require.NotNil(t, first.SalaryMin)
	assert.Equal(t, 120000, *first.SalaryMin)
	assert.Equal(t, 150000, *first.SalaryMax)

	assert.Equal(t, domain.LocationOnsite, jobs[1].LocationMode)
	assert.Equal(t, domain.LocationRemote, jobs[2].LocationMode)
}

func TestFetchStopsOnEmptyPage(t *testing.T) {
	calls := 0
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("start") == "0" {
			fmt.Fprint(w, page(card("b1", "SRE", "Hooli", "Remote")))
			return
		}
		fmt.Fprint(w, page())
	})

	jobs, err := a.Fetch(context.Background(), module.FetchRequest{MaxPages: 4})
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, 2, calls)
}

func TestFetchFirstPageFailure(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	_, err := a.Fetch(context.Background(), module.FetchRequest{MaxPages: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "HTTP 503")
}

func TestFetchSkipsUntitledCards(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page(card("c1", "", "Nobody", "Remote"), card("c2", "Data Engineer", "Acme", "Remote")))
	})

	jobs, err := a.Fetch(context.Background(), module.FetchRequest{MaxPages: 1})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Data Engineer", jobs[0].Title)
}

func TestPageURL(t *testing.T) {
	assert.Equal(t, "https://x.example/jobs?l=Berlin&q=go+rust&start=20",
		pageURL("https://x.example/jobs", []string{"go", "rust"}, "Berlin", 20))
	assert.Equal(t, "https://x.example/jobs?fromage=1&l=&q=developer&start=0",
		pageURL("https://x.example/jobs?fromage=1", nil, "", 0))
}
