package module

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/project-tktt/job-aggregator/internal/common/logger"
	"github.com/project-tktt/job-aggregator/internal/common/normalizer"
	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pageRecorder serves a full page on every call and records when each page was requested
type pageRecorder struct {
	mu    sync.Mutex
	pages []int
	times []time.Time
	fail  map[int]error
	empty map[int]bool
}

func (p *pageRecorder) fetch(_ context.Context, page int) ([]*domain.RawJob, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pages = append(p.pages, page)
	p.times = append(p.times, time.Now())

	if err := p.fail[page]; err != nil {
		return nil, err
	}
	if p.empty[page] {
		return nil, nil
	}
	return []*domain.RawJob{
		{ID: fmt.Sprintf("%d-a", page), Source: "test"},
		{ID: fmt.Sprintf("%d-b", page), Source: "test"},
	}, nil
}

func TestFetchPagesRespectsBudget(t *testing.T) {
	rec := &pageRecorder{}
	delay := 25 * time.Millisecond

	raws, err := FetchPages(context.Background(), 2, delay, rec.fetch, logger.Discard())
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, rec.pages)
	assert.Len(t, raws, 4)
	require.Len(t, rec.times, 2)
	assert.GreaterOrEqual(t, rec.times[1].Sub(rec.times[0]), delay)
}

func TestFetchPagesZeroBudgetFetchesOnePage(t *testing.T) {
	rec := &pageRecorder{}

	_, err := FetchPages(context.Background(), 0, time.Millisecond, rec.fetch, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, []int{0}, rec.pages)
}

func TestFetchPagesFirstPageFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"plain error is wrapped", errors.New("connection reset")},
		{"unavailable passes through", fmt.Errorf("%w: HTTP 503", domain.ErrSourceUnavailable)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &pageRecorder{fail: map[int]error{0: tt.err}}

			raws, err := FetchPages(context.Background(), 3, time.Millisecond, rec.fetch, logger.Discard())
			assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
			assert.Nil(t, raws)
			assert.Equal(t, []int{0}, rec.pages)
		})
	}
}

func TestFetchPagesLaterFailureKeepsEarlierPages(t *testing.T) {
	rec := &pageRecorder{fail: map[int]error{2: errors.New("HTTP 429")}}

	raws, err := FetchPages(context.Background(), 5, time.Millisecond, rec.fetch, logger.Discard())
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, rec.pages)
	assert.Len(t, raws, 4)
}

func TestFetchPagesStopsOnEmptyPage(t *testing.T) {
	rec := &pageRecorder{empty: map[int]bool{1: true}}

	raws, err := FetchPages(context.Background(), 5, time.Millisecond, rec.fetch, logger.Discard())
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, rec.pages)
	assert.Len(t, raws, 2)
}

func TestFetchPagesCancelledDuringDelay(t *testing.T) {
	rec := &pageRecorder{}
	ctx, cancel := context.WithCancel(context.Background())

	fetch := func(ctx context.Context, page int) ([]*domain.RawJob, error) {
		defer cancel()
		return rec.fetch(ctx, page)
	}

	raws, err := FetchPages(ctx, 5, time.Hour, fetch, logger.Discard())
	require.NoError(t, err)

	assert.Equal(t, []int{0}, rec.pages)
	assert.Len(t, raws, 2)
}

func TestCollect(t *testing.T) {
	raws := []*domain.RawJob{
		{ID: "1", URL: "https://example.com/1", Source: "test", RawData: map[string]any{"title": "Python Developer"}},
		{ID: "1", URL: "https://example.com/1", Source: "test", RawData: map[string]any{"title": "Python Developer"}},
		{ID: "2", URL: "https://example.com/2", Source: "test", RawData: map[string]any{"title": "Java Engineer"}},
		{ID: "3", URL: "https://example.com/3", Source: "test", RawData: map[string]any{"title": ""}},
	}
	norm := normalizer.NewNormalizer(nil)

	all := Collect(norm, raws, []string{"python"}, false, logger.Discard())
	require.Len(t, all, 2)
	assert.Equal(t, "test_1", all[0].ExternalID)
	assert.Equal(t, "test_2", all[1].ExternalID)

	filtered := Collect(norm, raws, []string{"python"}, true, logger.Discard())
	require.Len(t, filtered, 1)
	assert.Equal(t, "Python Developer", filtered[0].Title)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(namedAdapter("linkedin"), namedAdapter("indeed"))

	assert.Equal(t, []string{"indeed", "linkedin"}, r.Names())

	a, err := r.Get("indeed")
	require.NoError(t, err)
	assert.Equal(t, "indeed", a.Name())

	_, err = r.Get("monster")
	assert.ErrorIs(t, err, domain.ErrUnknownSource)
}

func TestSearchQuery(t *testing.T) {
	assert.Equal(t, "go rust", SearchQuery([]string{"go", " ", "rust "}))
	assert.Equal(t, DefaultQuery, SearchQuery(nil))
	assert.Equal(t, DefaultQuery, SearchQuery([]string{"", "  "}))
}

func TestConfigHelpers(t *testing.T) {
	cfg := map[string]string{"base_url": " https://example.com ", "per_page": "20", "max_pages": "-1", "blank": "  "}

	assert.Equal(t, "https://example.com", ConfigString(cfg, "base_url", "x"))
	assert.Equal(t, "x", ConfigString(cfg, "blank", "x"))
	assert.Equal(t, 20, ConfigInt(cfg, "per_page", 10))
	assert.Equal(t, 3, ConfigInt(cfg, "max_pages", 3))
	assert.Equal(t, 3, ConfigInt(nil, "max_pages", 3))
}

type namedAdapter string

func (n namedAdapter) Name() string { return string(n) }

func (n namedAdapter) Fetch(context.Context, FetchRequest) ([]*domain.Job, error) { return nil, nil }
