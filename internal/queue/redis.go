package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Queue = (*RedisQueue)(nil)

// RedisQueue pushes tasks with LPUSH and pops with BRPOP. Outcomes are kept under
// per-task keys with a TTL plus a notify list so Await can block instead of spinning.
type RedisQueue struct {
	client     *redis.Client
	queueName  string
	timeout    time.Duration
	outcomeTTL time.Duration
}

// NewRedisQueue creates a Redis-backed task queue
func NewRedisQueue(client *redis.Client, queueName string, timeout time.Duration) *RedisQueue {
	if queueName == "" {
		queueName = "aggregator:tasks"
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &RedisQueue{
		client:     client,
		queueName:  queueName,
		timeout:    timeout,
		outcomeTTL: 24 * time.Hour,
	}
}

func (q *RedisQueue) Submit(ctx context.Context, task Task) (string, error) {
	data, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("marshal task: %w", err)
	}

	if err := q.client.LPush(ctx, q.queueName, data).Err(); err != nil {
		return "", fmt.Errorf("lpush: %w", err)
	}

	return task.ID, nil
}

// Receive returns nil, nil if the BRPOP timeout passes with no task
func (q *RedisQueue) Receive(ctx context.Context) (*Task, error) {
	result, err := q.client.BRPop(ctx, q.timeout, q.queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("brpop: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var task Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}

	return &task, nil
}

func (q *RedisQueue) Report(ctx context.Context, outcome Outcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, q.outcomeKey(outcome.TaskID), data, q.outcomeTTL)
	pipe.LPush(ctx, q.notifyKey(outcome.TaskID), 1)
	pipe.Expire(ctx, q.notifyKey(outcome.TaskID), q.outcomeTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec: %w", err)
	}

	return nil
}

func (q *RedisQueue) Await(ctx context.Context, taskID string) (Outcome, error) {
	for {
		data, err := q.client.Get(ctx, q.outcomeKey(taskID)).Bytes()
		switch {
		case err == nil:
			var o Outcome
			if err := json.Unmarshal(data, &o); err != nil {
				return Outcome{}, fmt.Errorf("unmarshal outcome: %w", err)
			}
			return o, nil
		case !errors.Is(err, redis.Nil):
			return Outcome{}, fmt.Errorf("get outcome: %w", err)
		}

		if err := contextErr(ctx); err != nil {
			return Outcome{}, err
		}

		// Wake on the notify list; the timeout bounds the wait when another awaiter took the signal
		_, err = q.client.BRPop(ctx, time.Second, q.notifyKey(taskID)).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			if ctxErr := contextErr(ctx); ctxErr != nil {
				return Outcome{}, ctxErr
			}
			return Outcome{}, fmt.Errorf("brpop notify: %w", err)
		}
	}
}

// contextErr also reports a deadline that has passed but whose timer has not fired yet,
// since the connection deadline can trip first
func contextErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dl, ok := ctx.Deadline(); ok && !time.Now().Before(dl) {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

// Pending returns the length of the task list
func (q *RedisQueue) Pending(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.queueName).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}

func (q *RedisQueue) outcomeKey(id string) string {
	return fmt.Sprintf("%s:outcome:%s", q.queueName, id)
}

func (q *RedisQueue) notifyKey(id string) string {
	return fmt.Sprintf("%s:notify:%s", q.queueName, id)
}
