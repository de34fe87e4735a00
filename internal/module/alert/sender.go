package alert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/queue"
	"github.com/project-tktt/job-aggregator/internal/store"
)

// Sender delivers send_alert batches and records the outcome
type Sender struct {
	matches       store.MatchStore
	jobs          store.JobStore
	notifications store.NotificationStore
	dispatcher    Dispatcher
	logger        *slog.Logger
}

// NewSender creates a sender. A nil dispatcher logs batches.
func NewSender(matches store.MatchStore, jobs store.JobStore, notifications store.NotificationStore, dispatcher Dispatcher, logger *slog.Logger) *Sender {
	logger = logger.With(slog.String("component", "alert_sender"))
	if dispatcher == nil {
		dispatcher = NewLogDispatcher(logger)
	}
	return &Sender{
		matches:       matches,
		jobs:          jobs,
		notifications: notifications,
		dispatcher:    dispatcher,
		logger:        logger,
	}
}

// Send dispatches one batch. A delivery failure is recorded on the notification and
// is not returned; only store errors are. Load errors happen before anything is
// delivered and are retryable. Nothing is recorded when none of the batch's
// matches still belong to the user.
func (s *Sender) Send(ctx context.Context, p queue.SendAlertPayload) (*domain.Notification, error) {
	loaded, err := s.matches.GetByIDs(ctx, p.MatchIDs)
	if err != nil {
		return nil, domain.NewRetryableError(fmt.Errorf("load matches: %w", err))
	}

	matches := make([]*domain.Match, 0, len(loaded))
	jobIDs := make([]int64, 0, len(loaded))
	for _, m := range loaded {
		if m.UserID != p.UserID {
			continue
		}
		matches = append(matches, m)
		jobIDs = append(jobIDs, m.JobID)
	}
	if len(matches) == 0 {
		s.logger.Debug("No matches left to alert on", slog.Int64("user_id", p.UserID))
		return nil, nil
	}

	jobs, err := s.jobs.GetByIDs(ctx, jobIDs)
	if err != nil {
		return nil, domain.NewRetryableError(fmt.Errorf("load jobs: %w", err))
	}
	byID := make(map[int64]*domain.Job, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
	}

	batch := Batch{
		UserID:  p.UserID,
		Subject: Subject(len(matches)),
		Matches: matches,
		Jobs:    byID,
	}

	n := &domain.Notification{UserID: p.UserID, Subject: batch.Subject, Sent: true}
	for _, m := range matches {
		n.MatchIDs = append(n.MatchIDs, m.ID)
	}

	if err := s.dispatcher.Dispatch(ctx, batch); err != nil {
		s.logger.Warn("Alert delivery failed", slog.Int64("user_id", p.UserID), slog.Any("error", err))
		n.Sent = false
		n.Error = err.Error()
	}

	recorded, err := s.notifications.Record(context.WithoutCancel(ctx), n)
	if err != nil {
		return nil, fmt.Errorf("record notification for user %d: %w", p.UserID, err)
	}
	return recorded, nil
}

// Subject is the alert headline for n matched jobs
func Subject(n int) string {
	if n == 1 {
		return "1 New Job Alert"
	}
	return fmt.Sprintf("%d New Job Alerts", n)
}

// HandleTask runs a send_alert task
func (s *Sender) HandleTask(ctx context.Context, task *queue.Task) error {
	var p queue.SendAlertPayload
	if err := task.Decode(&p); err != nil {
		return err
	}
	_, err := s.Send(ctx, p)
	return err
}
