// Package app wires configuration into the stores, queue, adapters and pipeline
// components shared by the binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/project-tktt/job-aggregator/internal/common/cleaner"
	"github.com/project-tktt/job-aggregator/internal/common/dedup"
	"github.com/project-tktt/job-aggregator/internal/common/indexer"
	"github.com/project-tktt/job-aggregator/internal/common/logger"
	"github.com/project-tktt/job-aggregator/internal/common/normalizer"
	"github.com/project-tktt/job-aggregator/internal/config"
	"github.com/project-tktt/job-aggregator/internal/domain"
	"github.com/project-tktt/job-aggregator/internal/module"
	"github.com/project-tktt/job-aggregator/internal/module/indeed"
	"github.com/project-tktt/job-aggregator/internal/module/linkedin"
	"github.com/project-tktt/job-aggregator/internal/module/remoteok"
	"github.com/project-tktt/job-aggregator/internal/module/scrapeclient"
	"github.com/project-tktt/job-aggregator/internal/queue"
	"github.com/project-tktt/job-aggregator/internal/store"
	"github.com/project-tktt/job-aggregator/internal/store/memory"
	"github.com/project-tktt/job-aggregator/internal/store/postgres"
	"github.com/redis/go-redis/v9"
)

const (
	queuePollTimeout = 5 * time.Second
	discoveryTimeout = 10 * time.Second
)

// App holds the process-wide dependencies
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Stores   store.Stores
	Queue    queue.Queue
	Claimer  dedup.Claimer
	Indexer  indexer.Indexer
	Registry *module.Registry

	redis *redis.Client
}

// NewLogger builds the process logger from configuration
func NewLogger(cfg *config.Config) *slog.Logger {
	return logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	})
}

// New opens every backend the configuration selects. Close releases them.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	stores, err := openStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Stores = stores

	switch cfg.Queue.Driver {
	case config.DriverRedis:
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		logger.Info("Redis connected", slog.String("addr", cfg.Redis.Addr))
		a.Queue = queue.NewRedisQueue(a.redis, cfg.Redis.TaskQueue, queuePollTimeout)
		a.Claimer = dedup.NewRedisClaimer(a.redis, cfg.Redis.TaskQueue+":claim", cfg.Pipeline.AlertWindow)
	default:
		a.Queue = queue.NewMemoryQueue(0, time.Second)
		a.Claimer = dedup.NewMemoryClaimer(cfg.Pipeline.AlertWindow)
	}

	a.Indexer = indexer.Nop{}
	if len(cfg.Elasticsearch.Addresses) > 0 {
		es, err := indexer.NewElasticsearchIndexer(cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Index, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("elasticsearch client: %w", err)
		}
		if err := es.EnsureIndex(ctx); err != nil {
			logger.Warn("Ensure index failed", slog.Any("error", err))
		}
		a.Indexer = es
	}

	a.Registry = NewRegistry(ctx, cfg, logger)
	return a, nil
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Stores, error) {
	if cfg.Store.Driver == config.DriverMemory {
		logger.Warn("Using in-memory store; data is lost on exit")
		return memory.New(), nil
	}

	db, err := postgres.Open(ctx, cfg.Postgres.ConnectionString, logger)
	if err != nil {
		return store.Stores{}, err
	}
	logger.Info("PostgreSQL connected")
	return postgres.New(db), nil
}

// LocalAdapters builds the in-process source adapters
func LocalAdapters(cfg *config.Config, logger *slog.Logger) []module.SourceAdapter {
	norm := normalizer.NewNormalizer(cleaner.NewStrictCleaner())

	return []module.SourceAdapter{
		remoteok.New(remoteok.Config{
			UserAgent:   cfg.Scraper.UserAgent,
			PageTimeout: cfg.Scraper.PageTimeout,
		}, norm, logger),
		indeed.New(indeed.Config{
			UserAgent:   cfg.Scraper.UserAgent,
			PageTimeout: cfg.Scraper.PageTimeout,
		}, norm, logger),
		linkedin.New(linkedin.Config{
			UserAgent:   cfg.Scraper.UserAgent,
			PageTimeout: cfg.Scraper.PageTimeout,
		}, norm, logger),
	}
}

// NewRegistry returns remote adapters when a scrape service is configured, local ones otherwise.
// Remote adapter names come from the service; if it cannot be asked, the local names are used.
func NewRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger) *module.Registry {
	local := module.NewRegistry(LocalAdapters(cfg, logger)...)
	if cfg.Scraper.ServiceURL == "" {
		return local
	}

	client := scrapeclient.New(cfg.Scraper.ServiceURL, cfg.Scraper.ScrapeTimeout, logger)

	ctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	names, err := client.Scrapers(ctx)
	if err != nil || len(names) == 0 {
		logger.Warn("Scraper discovery failed, using local adapter names",
			slog.String("url", cfg.Scraper.ServiceURL),
			slog.Any("error", err),
		)
		names = local.Names()
	}

	logger.Info("Using remote scrape service",
		slog.String("url", cfg.Scraper.ServiceURL),
		slog.Any("scrapers", names),
	)
	return client.Registry(names...)
}

var defaultBaseURLs = map[string]string{
	remoteok.Name: remoteok.SiteURL,
	indeed.Name:   indeed.SearchURL,
	linkedin.Name: linkedin.SearchURL,
}

// SeedSources registers an active JobSource for every adapter that has none yet
func SeedSources(ctx context.Context, sources store.SourceStore, registry *module.Registry) error {
	for _, name := range registry.Names() {
		if _, err := sources.Register(ctx, &domain.JobSource{
			Name:     name,
			BaseURL:  defaultBaseURLs[name],
			IsActive: true,
			Config:   map[string]string{},
		}); err != nil {
			return fmt.Errorf("register source %s: %w", name, err)
		}
	}
	return nil
}

// Close releases the store and Redis connections
func (a *App) Close() error {
	var errs []error
	if a.Stores.Close != nil {
		errs = append(errs, a.Stores.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
