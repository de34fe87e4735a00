// Package memory implements the stores in process memory for single-binary runs and tests.
package memory

import (
	"time"

	"github.com/project-tktt/job-aggregator/internal/store"
)

// New returns a full set of empty in-memory stores
func New() store.Stores {
	return store.Stores{
		Jobs:          NewJobStore(),
		Sources:       NewSourceStore(),
		Preferences:   NewPreferenceStore(),
		Matches:       NewMatchStore(),
		Runs:          NewRunLog(),
		Notifications: NewNotificationStore(),
		Close:         func() error { return nil },
	}
}

type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}
