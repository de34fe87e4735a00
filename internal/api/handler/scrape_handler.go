package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/module"
)

// Scrape handles POST /scrape/:source_name
// Runs the named adapter synchronously. Adapter failures are reported in the body with status=failed.
func (h *ScrapeHandler) Scrape(c *gin.Context) {
	name := c.Param("source_name")

	var req module.ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	adapter, err := h.registry.Get(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	if req.MaxPages > h.maxPages {
		req.MaxPages = h.maxPages
	}

	h.logger.Info("Scrape requested",
		slog.String("source", name),
		slog.Any("keywords", req.Keywords),
		slog.Int("max_pages", req.MaxPages),
	)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	start := time.Now()
	jobs, err := adapter.Fetch(ctx, req.FetchRequest())
	resp := module.ScrapeResponse{
		ScraperName: name,
		Duration:    time.Since(start).Seconds(),
	}

	if err != nil {
		h.logger.Error("Scrape failed", slog.String("source", name), slog.Any("error", err))
		resp.Status = module.ScrapeStatusFailed
		resp.Error = err.Error()
		resp.Jobs = []*domain.Job{}
		c.JSON(http.StatusOK, resp)
		return
	}

	// nothing is persisted here; the caller's upserts decide created vs updated
	resp.Status = module.ScrapeStatusSuccess
	resp.JobsScraped = len(jobs)
	resp.JobsCreated = len(jobs)
	resp.Jobs = jobs
	c.JSON(http.StatusOK, resp)
}

// ListScrapers handles GET /scrapers
func (h *ScrapeHandler) ListScrapers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"scrapers": h.registry.Names(),
	})
}
