// Package alert batches users' unviewed matches into notifications.
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/project-tktt/job-aggregator/internal/common/dedup"
	"github.com/project-tktt/job-aggregator/internal/queue"
	"github.com/project-tktt/job-aggregator/internal/store"
)

const (
	DefaultWindow   = 24 * time.Hour
	DefaultInterval = 2 * time.Hour
)

// SchedulerConfig holds alert scheduler configuration
type SchedulerConfig struct {
	// Window bounds how old an unviewed match may be and still be alerted on
	Window time.Duration
	// Interval is the alert cadence; claims are taken per user per interval
	Interval time.Duration
}

// Scheduler enqueues one send_alert batch per user with unviewed recent matches
type Scheduler struct {
	prefs   store.PreferenceStore
	matches store.MatchStore
	tasks   queue.Submitter
	claimer dedup.Claimer
	config  SchedulerConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewScheduler creates an alert scheduler. A nil claimer disables cycle claims.
func NewScheduler(prefs store.PreferenceStore, matches store.MatchStore, tasks queue.Submitter, claimer dedup.Claimer, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Scheduler{
		prefs:   prefs,
		matches: matches,
		tasks:   tasks,
		claimer: claimer,
		config:  cfg,
		logger:  logger.With(slog.String("component", "alert_scheduler")),
		now:     time.Now,
	}
}

// Run enqueues this cycle's batches and returns how many were submitted.
// A user with several notifiable preferences still gets a single batch.
func (s *Scheduler) Run(ctx context.Context) (int, error) {
	prefs, err := s.prefs.ListNotifiable(ctx)
	if err != nil {
		return 0, fmt.Errorf("list notifiable preferences: %w", err)
	}

	now := s.now().UTC()
	since := now.Add(-s.config.Window)
	cycle := now.Truncate(s.config.Interval)

	seen := make(map[int64]struct{}, len(prefs))
	submitted := 0
	var errs []error

	for _, pref := range prefs {
		if _, ok := seen[pref.UserID]; ok {
			continue
		}
		seen[pref.UserID] = struct{}{}

		ok, err := s.enqueue(ctx, pref.UserID, since, cycle)
		if err != nil {
			s.logger.Error("Failed to enqueue alert", slog.Int64("user_id", pref.UserID), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		if ok {
			submitted++
		}
	}

	s.logger.Info("Alert cycle finished",
		slog.Time("cycle", cycle),
		slog.Int("users", len(seen)),
		slog.Int("batches", submitted),
	)
	return submitted, errors.Join(errs...)
}

func (s *Scheduler) enqueue(ctx context.Context, userID int64, since, cycle time.Time) (bool, error) {
	matches, err := s.matches.UnviewedSince(ctx, userID, since)
	if err != nil {
		return false, fmt.Errorf("load unviewed matches for user %d: %w", userID, err)
	}
	if len(matches) == 0 {
		return false, nil
	}

	key := claimKey(userID, cycle)
	if s.claimer != nil {
		claimed, err := s.claimer.Claim(ctx, key)
		if err != nil {
			return false, fmt.Errorf("claim %s: %w", key, err)
		}
		if !claimed {
			s.logger.Debug("Alert already enqueued this cycle", slog.Int64("user_id", userID))
			return false, nil
		}
	}

	ids := make([]int64, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}

	if _, err := queue.SubmitTask(ctx, s.tasks, queue.TaskSendAlert, queue.SendAlertPayload{UserID: userID, MatchIDs: ids}); err != nil {
		if s.claimer != nil {
			if rerr := s.claimer.Release(context.WithoutCancel(ctx), key); rerr != nil {
				s.logger.Warn("Failed to release alert claim", slog.String("key", key), slog.Any("error", rerr))
			}
		}
		return false, fmt.Errorf("submit alert for user %d: %w", userID, err)
	}
	return true, nil
}

func claimKey(userID int64, cycle time.Time) string {
	return fmt.Sprintf("alert:%d:%d", userID, cycle.Unix())
}
