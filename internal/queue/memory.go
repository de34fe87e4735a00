package queue

import (
	"context"
	"sync"
	"time"
)

var _ Queue = (*MemoryQueue)(nil)

// MemoryQueue is an in-process Queue backed by a buffered channel
type MemoryQueue struct {
	tasks       chan Task
	pollTimeout time.Duration

	mu       sync.Mutex
	outcomes map[string]Outcome
	waiters  map[string][]chan Outcome
}

// NewMemoryQueue creates a queue holding up to capacity pending tasks
func NewMemoryQueue(capacity int, pollTimeout time.Duration) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	if pollTimeout == 0 {
		pollTimeout = time.Second
	}
	return &MemoryQueue{
		tasks:       make(chan Task, capacity),
		pollTimeout: pollTimeout,
		outcomes:    make(map[string]Outcome),
		waiters:     make(map[string][]chan Outcome),
	}
}

// Submit blocks while the queue is full
func (q *MemoryQueue) Submit(ctx context.Context, task Task) (string, error) {
	select {
	case q.tasks <- task:
		return task.ID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *MemoryQueue) Receive(ctx context.Context) (*Task, error) {
	timer := time.NewTimer(q.pollTimeout)
	defer timer.Stop()

	select {
	case task := <-q.tasks:
		return &task, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Report(_ context.Context, outcome Outcome) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.outcomes[outcome.TaskID] = outcome
	for _, w := range q.waiters[outcome.TaskID] {
		w <- outcome
	}
	delete(q.waiters, outcome.TaskID)
	return nil
}

func (q *MemoryQueue) Await(ctx context.Context, taskID string) (Outcome, error) {
	q.mu.Lock()
	if o, ok := q.outcomes[taskID]; ok {
		q.mu.Unlock()
		return o, nil
	}
	w := make(chan Outcome, 1)
	q.waiters[taskID] = append(q.waiters[taskID], w)
	q.mu.Unlock()

	select {
	case o := <-w:
		return o, nil
	case <-ctx.Done():
		q.removeWaiter(taskID, w)
		return Outcome{}, ctx.Err()
	}
}

func (q *MemoryQueue) removeWaiter(taskID string, w chan Outcome) {
	q.mu.Lock()
	defer q.mu.Unlock()

	ws := q.waiters[taskID]
	for i, c := range ws {
		if c == w {
			ws = append(ws[:i], ws[i+1:]...)
			break
		}
	}
	if len(ws) == 0 {
		delete(q.waiters, taskID)
		return
	}
	q.waiters[taskID] = ws
}

// Len returns the number of pending tasks
func (q *MemoryQueue) Len() int {
	return len(q.tasks)
}

func (q *MemoryQueue) Pending(context.Context) (int64, error) {
	return int64(q.Len()), nil
}
