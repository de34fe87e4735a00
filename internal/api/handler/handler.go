package handler

import (
	"log/slog"
	"time"

	"github.com/project-tktt/job-aggregator/internal/module"
	"github.com/project-tktt/job-aggregator/internal/queue"
	"github.com/project-tktt/job-aggregator/internal/store"
)

const defaultMaxPagesLimit = 10

// Dependencies holds all dependencies needed by handlers. Services leave unused fields nil.
type Dependencies struct {
	Logger *slog.Logger

	// scrape service
	Registry      *module.Registry
	ScrapeTimeout time.Duration
	MaxPagesLimit int

	// worker ops
	Runs          store.RunLog
	Matches       store.MatchStore
	Notifications store.NotificationStore
	Queue         queue.Queue
}

// ScrapeHandler serves the scrape trigger endpoints
type ScrapeHandler struct {
	registry *module.Registry
	timeout  time.Duration
	maxPages int
	logger   *slog.Logger
}

// NewScrapeHandler creates a new ScrapeHandler
func NewScrapeHandler(deps *Dependencies) *ScrapeHandler {
	timeout := deps.ScrapeTimeout
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	maxPages := deps.MaxPagesLimit
	if maxPages <= 0 {
		maxPages = defaultMaxPagesLimit
	}
	return &ScrapeHandler{
		registry: deps.Registry,
		timeout:  timeout,
		maxPages: maxPages,
		logger:   deps.Logger,
	}
}

// OpsHandler serves run log, match flag, notification and queue endpoints for operators
type OpsHandler struct {
	runs          store.RunLog
	matches       store.MatchStore
	notifications store.NotificationStore
	queue         queue.Queue
	logger        *slog.Logger
}

// NewOpsHandler creates a new OpsHandler
func NewOpsHandler(deps *Dependencies) *OpsHandler {
	return &OpsHandler{
		runs:          deps.Runs,
		matches:       deps.Matches,
		notifications: deps.Notifications,
		queue:         deps.Queue,
		logger:        deps.Logger,
	}
}
