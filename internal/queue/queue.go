package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskType names the handler a task is routed to
type TaskType string

const (
	TaskScrapeSource TaskType = "scrape_source"
	TaskMatchSource  TaskType = "match_source"
	TaskSendAlert    TaskType = "send_alert"
)

// Task is one independent unit of work
type Task struct {
	ID          string          `json:"id"`
	Type        TaskType        `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// Status is the terminal state of a task
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Outcome is reported once per task, after its final attempt
type Outcome struct {
	TaskID     string    `json:"task_id"`
	Type       TaskType  `json:"type"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Attempt    int       `json:"attempt"`
	FinishedAt time.Time `json:"finished_at"`
}

// Submitter enqueues tasks
type Submitter interface {
	Submit(ctx context.Context, task Task) (string, error)
}

// Queue is a task queue with completion observation
type Queue interface {
	Submitter
	// Receive blocks for the next task; it returns nil, nil when nothing arrived before the poll timeout
	Receive(ctx context.Context) (*Task, error)
	Report(ctx context.Context, outcome Outcome) error
	// Await blocks until the task's outcome is reported or ctx ends
	Await(ctx context.Context, taskID string) (Outcome, error)
	// Pending returns the number of tasks waiting to be received
	Pending(ctx context.Context) (int64, error)
}

// ScrapeSourcePayload asks for one source to be scraped
type ScrapeSourcePayload struct {
	SourceName string `json:"source_name"`
}

// MatchSourcePayload asks for a source's recent jobs to be matched
type MatchSourcePayload struct {
	SourceID   int64     `json:"source_id"`
	SourceName string    `json:"source_name"`
	RunID      int64     `json:"run_id"`
	Since      time.Time `json:"since"`
}

// SendAlertPayload is one notification batch for one user
type SendAlertPayload struct {
	UserID   int64   `json:"user_id"`
	MatchIDs []int64 `json:"match_ids"`
}

// NewTask builds a task with a fresh id and a JSON payload
func NewTask(taskType TaskType, payload any) (Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("marshal %s payload: %w", taskType, err)
	}
	return Task{
		ID:          uuid.NewString(),
		Type:        taskType,
		Payload:     data,
		Attempt:     1,
		SubmittedAt: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the task payload into v
func (t *Task) Decode(v any) error {
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", t.Type, err)
	}
	return nil
}

// SubmitTask builds and submits a task in one call
func SubmitTask(ctx context.Context, s Submitter, taskType TaskType, payload any) (string, error) {
	task, err := NewTask(taskType, payload)
	if err != nil {
		return "", err
	}
	return s.Submit(ctx, task)
}
