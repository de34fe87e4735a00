package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceUnavailable covers network failures, timeouts and non-2xx answers from a source
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrParseFailure marks a single malformed listing
	ErrParseFailure = errors.New("parse failure")
	// ErrUnknownSource is returned for a source name nothing is registered under
	ErrUnknownSource = errors.New("unknown source")
	// ErrPersistenceConflict is a transient write conflict in the store
	ErrPersistenceConflict = errors.New("persistence conflict")

	ErrNotFound     = errors.New("not found")
	ErrRunFinalized = errors.New("run already finalized")
)

// RetryableError marks an error the worker may retry
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError wraps err as retryable
func NewRetryableError(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err should be retried. Persistence conflicts are always retryable.
func IsRetryable(err error) bool {
	var re *RetryableError
	if errors.As(err, &re) {
		return true
	}
	return errors.Is(err, ErrPersistenceConflict)
}
