package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/project-tktt/job-aggregator/internal/domain"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
)

// runResponse adds the derived duration to a run
type runResponse struct {
	*domain.ScrapeRun
	DurationSeconds float64 `json:"duration_seconds"`
}

func toRunResponse(r *domain.ScrapeRun) runResponse {
	return runResponse{ScrapeRun: r, DurationSeconds: r.Duration().Seconds()}
}

// ListRuns handles GET /runs
// Lists the most recent scrape runs, newest first
func (h *OpsHandler) ListRuns(c *gin.Context) {
	limit := defaultRunLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit must be a positive integer",
			})
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := h.runs.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list runs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list runs",
		})
		return
	}

	out := make([]runResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, toRunResponse(r))
	}
	c.JSON(http.StatusOK, gin.H{
		"runs":  out,
		"count": len(out),
	})
}

// GetRun handles GET /runs/:run_id
func (h *OpsHandler) GetRun(c *gin.Context) {
	id, ok := parseID(c, "run_id")
	if !ok {
		return
	}

	run, err := h.runs.Get(c.Request.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "run not found",
		})
		return
	}
	if err != nil {
		h.logger.Error("Failed to get run", slog.Int64("run_id", id), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get run",
		})
		return
	}

	c.JSON(http.StatusOK, toRunResponse(run))
}

// UpdateMatchFlags handles PATCH /matches/:match_id
// Applies user-driven viewed/bookmarked/applied changes; omitted flags are left as they are
func (h *OpsHandler) UpdateMatchFlags(c *gin.Context) {
	id, ok := parseID(c, "match_id")
	if !ok {
		return
	}

	var flags domain.MatchFlags
	if err := c.ShouldBindJSON(&flags); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}
	if flags.Viewed == nil && flags.Bookmarked == nil && flags.Applied == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "at least one of viewed, bookmarked or applied is required",
		})
		return
	}

	match, err := h.matches.SetFlags(c.Request.Context(), id, flags)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "match not found",
		})
		return
	}
	if err != nil {
		h.logger.Error("Failed to update match", slog.Int64("match_id", id), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to update match",
		})
		return
	}

	c.JSON(http.StatusOK, match)
}

// ListNotifications handles GET /users/:user_id/notifications
func (h *OpsHandler) ListNotifications(c *gin.Context) {
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}

	notifications, err := h.notifications.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list notifications", slog.Int64("user_id", userID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list notifications",
		})
		return
	}

	if notifications == nil {
		notifications = []*domain.Notification{}
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

// QueueStats handles GET /queue
func (h *OpsHandler) QueueStats(c *gin.Context) {
	pending, err := h.queue.Pending(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read queue length", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Failed to read queue length",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pending": pending,
	})
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": param + " must be a positive integer",
		})
		return 0, false
	}
	return id, true
}
