package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/project-tktt/job-aggregator/internal/domain"
)

// Batch is one user's notification, ready for delivery
type Batch struct {
	UserID  int64
	Subject string
	Matches []*domain.Match
	Jobs    map[int64]*domain.Job
}

// Dispatcher delivers a batch. An error means the user was not notified.
type Dispatcher interface {
	Dispatch(ctx context.Context, batch Batch) error
}

// LogDispatcher writes batches to the log instead of delivering them
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher creates a dispatcher that only logs batches
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Dispatch logs the batch and never fails
func (d *LogDispatcher) Dispatch(_ context.Context, batch Batch) error {
	d.logger.Info("Job alert",
		slog.Int64("user_id", batch.UserID),
		slog.String("subject", batch.Subject),
		slog.Int("matches", len(batch.Matches)),
	)
	return nil
}

// WebhookDispatcher POSTs batches as JSON to a fixed URL
type WebhookDispatcher struct {
	url    string
	client *http.Client
}

// NewWebhookDispatcher creates a dispatcher posting to url
func NewWebhookDispatcher(url string, timeout time.Duration) *WebhookDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookDispatcher{url: url, client: &http.Client{Timeout: timeout}}
}

type webhookJob struct {
	MatchID int64   `json:"match_id"`
	JobID   int64   `json:"job_id"`
	Score   float64 `json:"score"`
	Title   string  `json:"title,omitempty"`
	Company string  `json:"company,omitempty"`
	URL     string  `json:"url,omitempty"`
}

type webhookPayload struct {
	UserID  int64        `json:"user_id"`
	Subject string       `json:"subject"`
	Jobs    []webhookJob `json:"jobs"`
}

// Dispatch posts the batch as JSON; a non-2xx answer is an error
func (d *WebhookDispatcher) Dispatch(ctx context.Context, batch Batch) error {
	payload := webhookPayload{UserID: batch.UserID, Subject: batch.Subject}
	for _, m := range batch.Matches {
		item := webhookJob{MatchID: m.ID, JobID: m.JobID, Score: m.Score}
		if job, ok := batch.Jobs[m.JobID]; ok {
			item.Title, item.Company, item.URL = job.Title, job.Company, job.URL
		}
		payload.Jobs = append(payload.Jobs, item)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("webhook returned HTTP %d: %s", resp.StatusCode, string(bytes.TrimSpace(msg)))
	}
	return nil
}
