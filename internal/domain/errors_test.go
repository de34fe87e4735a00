package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"retryable wrapper", NewRetryableError(errors.New("timeout")), true},
		{"wrapped retryable", fmt.Errorf("scrape: %w", NewRetryableError(ErrSourceUnavailable)), true},
		{"persistence conflict", fmt.Errorf("upsert job: %w", ErrPersistenceConflict), true},
		{"unknown source", ErrUnknownSource, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestRetryableErrorUnwrap(t *testing.T) {
	err := NewRetryableError(ErrSourceUnavailable)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Nil(t, NewRetryableError(nil))
}

func TestScrapeRunDuration(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	run := &ScrapeRun{StartedAt: start}
	assert.Zero(t, run.Duration())

	end := start.Add(90 * time.Second)
	run.CompletedAt = &end
	assert.Equal(t, 90*time.Second, run.Duration())
}
