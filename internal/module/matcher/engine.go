// Package matcher scores recently scraped jobs against users' standing searches.
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/queue"
	"github.com/project-tktt/job-aggregator/internal/store"
)

const (
	// Threshold is exclusive: a score of exactly 0.3 does not match
	Threshold     = 0.3
	DefaultWindow = 2 * time.Hour

	titleWeight       = 0.4
	descriptionWeight = 0.3
	locationWeight    = 0.2
	employmentWeight  = 0.1
)

// Config holds match engine configuration
type Config struct {
	// Window bounds how far back jobs are rescored, regardless of the requested since
	Window time.Duration
}

// Engine materializes matches for (preference, job) pairs above the threshold
type Engine struct {
	jobs    store.JobStore
	prefs   store.PreferenceStore
	matches store.MatchStore
	config  Config
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a match engine
func New(jobs store.JobStore, prefs store.PreferenceStore, matches store.MatchStore, cfg Config, logger *slog.Logger) *Engine {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	return &Engine{
		jobs:    jobs,
		prefs:   prefs,
		matches: matches,
		config:  cfg,
		logger:  logger.With(slog.String("component", "matcher")),
		now:     time.Now,
	}
}

// MatchSource scores the source's jobs seen since the given time against every active
// preference and returns how many matches were created. Pairs whose user already has a
// match for the job are skipped before scoring, so re-running over the same data creates nothing.
func (e *Engine) MatchSource(ctx context.Context, sourceID int64, since time.Time) (int, error) {
	if floor := e.now().Add(-e.config.Window); since.Before(floor) {
		since = floor
	}

	jobs, err := e.jobs.RecentBySource(ctx, sourceID, since)
	if err != nil {
		return 0, fmt.Errorf("load recent jobs: %w", err)
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	prefs, err := e.prefs.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("load preferences: %w", err)
	}

	created := 0
	for _, job := range jobs {
		for _, pref := range prefs {
			exists, err := e.matches.Exists(ctx, pref.UserID, job.ID)
			if err != nil {
				return created, fmt.Errorf("check match user=%d job=%d: %w", pref.UserID, job.ID, err)
			}
			if exists {
				continue
			}

			score := Score(pref, job)
			if score <= Threshold {
				continue
			}

			_, inserted, err := e.matches.CreateIfAbsent(ctx, &domain.Match{
				UserID:       pref.UserID,
				JobID:        job.ID,
				PreferenceID: pref.ID,
				Score:        score,
			})
			if err != nil {
				return created, fmt.Errorf("create match user=%d job=%d: %w", pref.UserID, job.ID, err)
			}
			if inserted {
				created++
			}
		}
	}

	e.logger.Info("Matched jobs",
		slog.Int64("source_id", sourceID),
		slog.Int("jobs", len(jobs)),
		slog.Int("preferences", len(prefs)),
		slog.Int("created", created),
	)
	return created, nil
}

// HandleTask runs a match_source task
func (e *Engine) HandleTask(ctx context.Context, task *queue.Task) error {
	var p queue.MatchSourcePayload
	if err := task.Decode(&p); err != nil {
		return err
	}
	if _, err := e.MatchSource(ctx, p.SourceID, p.Since); err != nil {
		// a rerun skips pairs that already matched
		return domain.NewRetryableError(err)
	}
	return nil
}

// Score computes the relevance of a job for a preference, in [0, 1]
func Score(pref *domain.Preference, job *domain.Job) float64 {
	score := keywordFraction(pref.Keywords, job.Title)*titleWeight +
		keywordFraction(pref.Keywords, job.Description)*descriptionWeight

	if pref.LocationMode != "" && job.LocationMode == pref.LocationMode {
		score += locationWeight
	}
	if pref.EmploymentMode != "" && job.EmploymentMode == pref.EmploymentMode {
		score += employmentWeight
	}

	score = math.Min(score, 1.0)
	// Weights are decimal; round away float noise so 0.2+0.1 compares equal to 0.3
	return math.Round(score*1e9) / 1e9
}

// keywordFraction is matches/len(keywords); an empty keyword list contributes 0
func keywordFraction(keywords []string, text string) float64 {
	text = strings.ToLower(text)

	total, found := 0, 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		total++
		if strings.Contains(text, kw) {
			found++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(found) / float64(total)
}
