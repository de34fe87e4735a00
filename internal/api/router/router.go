package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/project-tktt/job-aggregator/internal/api/handler"
)

// SetupScrapeRouter configures the scrape trigger service routes
func SetupScrapeRouter(deps *handler.Dependencies) *gin.Engine {
	r := newEngine(deps, "scrape-service")

	scrapeHandler := handler.NewScrapeHandler(deps)

	// POST /scrape/:source_name - Run one adapter and return its jobs
	r.POST("/scrape/:source_name", scrapeHandler.Scrape)

	// GET /scrapers - List registered adapters
	r.GET("/scrapers", scrapeHandler.ListScrapers)

	return r
}

// SetupWorkerRouter configures the worker's operator routes
func SetupWorkerRouter(deps *handler.Dependencies) *gin.Engine {
	r := newEngine(deps, "worker")

	opsHandler := handler.NewOpsHandler(deps)

	runs := r.Group("/runs")
	{
		// GET /runs - Recent scrape runs
		runs.GET("", opsHandler.ListRuns)

		// GET /runs/:run_id - One scrape run
		runs.GET("/:run_id", opsHandler.GetRun)
	}

	// PATCH /matches/:match_id - User flag changes
	r.PATCH("/matches/:match_id", opsHandler.UpdateMatchFlags)

	if deps.Notifications != nil {
		// GET /users/:user_id/notifications - Alert delivery history
		r.GET("/users/:user_id/notifications", opsHandler.ListNotifications)
	}

	if deps.Queue != nil {
		// GET /queue - Pending task count
		r.GET("/queue", opsHandler.QueueStats)
	}

	return r
}

func newEngine(deps *handler.Dependencies, service string) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": service,
		})
	})

	return r
}
