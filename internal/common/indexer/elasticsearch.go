package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/project-tktt/job-aggregator/internal/domain"
)

// ElasticsearchIndexer indexes jobs to Elasticsearch, keyed by external id
type ElasticsearchIndexer struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

// NewElasticsearchIndexer creates a new Elasticsearch indexer and checks the connection
func NewElasticsearchIndexer(addresses []string, indexName string, logger *slog.Logger) (*ElasticsearchIndexer, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("create es client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("es info: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("es error: %s", res.Status())
	}

	return &ElasticsearchIndexer{
		client:    client,
		indexName: indexName,
		logger:    logger,
	}, nil
}

type document struct {
	ExternalID     string   `json:"external_id"`
	Source         string   `json:"source"`
	Title          string   `json:"title"`
	Company        string   `json:"company"`
	Location       string   `json:"location"`
	LocationMode   string   `json:"location_mode"`
	EmploymentMode string   `json:"employment_mode"`
	Description    string   `json:"description"`
	SalaryMin      *int     `json:"salary_min,omitempty"`
	SalaryMax      *int     `json:"salary_max,omitempty"`
	Currency       string   `json:"currency"`
	Tags           []string `json:"tags"`
	URL            string   `json:"url"`
	PostedAt       string   `json:"posted_at"`
	LastSeenAt     string   `json:"last_seen_at"`
	IsActive       bool     `json:"is_active"`
}

func toDocument(job *domain.Job) document {
	return document{
		ExternalID:     job.ExternalID,
		Source:         job.Source,
		Title:          job.Title,
		Company:        job.Company,
		Location:       job.Location,
		LocationMode:   string(job.LocationMode),
		EmploymentMode: string(job.EmploymentMode),
		Description:    job.Description,
		SalaryMin:      job.SalaryMin,
		SalaryMax:      job.SalaryMax,
		Currency:       job.Currency,
		Tags:           job.Tags,
		URL:            job.URL,
		PostedAt:       job.PostedAt.UTC().Format("2006-01-02T15:04:05Z"),
		LastSeenAt:     job.LastSeenAt.UTC().Format("2006-01-02T15:04:05Z"),
		IsActive:       job.IsActive,
	}
}

// BulkIndex indexes multiple jobs at once. Per-document failures are logged, not returned.
func (i *ElasticsearchIndexer) BulkIndex(ctx context.Context, jobs []*domain.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	var buf bytes.Buffer

	for _, job := range jobs {
		meta := map[string]any{
			"index": map[string]any{
				"_index": i.indexName,
				"_id":    job.ExternalID,
			},
		}
		metaBytes, _ := json.Marshal(meta)

		docBytes, err := json.Marshal(toDocument(job))
		if err != nil {
			i.logger.Warn("marshal job", slog.String("external_id", job.ExternalID), slog.Any("error", err))
			continue
		}
		buf.Write(metaBytes)
		buf.WriteByte('\n')
		buf.Write(docBytes)
		buf.WriteByte('\n')
	}

	res, err := i.client.Bulk(bytes.NewReader(buf.Bytes()), i.client.Bulk.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk error: %s", res.Status())
	}

	var bulkRes struct {
		Errors bool `json:"errors"`
		Items  []struct {
			Index struct {
				ID     string `json:"_id"`
				Status int    `json:"status"`
				Error  struct {
					Type   string `json:"type"`
					Reason string `json:"reason"`
				} `json:"error"`
			} `json:"index"`
		} `json:"items"`
	}

	if err := json.NewDecoder(res.Body).Decode(&bulkRes); err != nil {
		return fmt.Errorf("parse bulk response: %w", err)
	}

	if bulkRes.Errors {
		for _, item := range bulkRes.Items {
			if item.Index.Status >= 400 {
				i.logger.Warn("bulk index item failed",
					slog.String("external_id", item.Index.ID),
					slog.String("type", item.Index.Error.Type),
					slog.String("reason", item.Index.Error.Reason),
				)
			}
		}
	}

	return nil
}

const indexMapping = `{
	"mappings": {
		"properties": {
			"external_id": {"type": "keyword"},
			"source": {"type": "keyword"},
			"title": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
			"company": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
			"location": {"type": "text"},
			"location_mode": {"type": "keyword"},
			"employment_mode": {"type": "keyword"},
			"description": {"type": "text"},
			"salary_min": {"type": "integer"},
			"salary_max": {"type": "integer"},
			"currency": {"type": "keyword"},
			"tags": {"type": "keyword"},
			"url": {"type": "keyword"},
			"posted_at": {"type": "date"},
			"last_seen_at": {"type": "date"},
			"is_active": {"type": "boolean"}
		}
	}
}`

// EnsureIndex creates the index with the job mapping if it doesn't exist
func (i *ElasticsearchIndexer) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.indexName}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	res, err = i.client.Indices.Create(
		i.indexName,
		i.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		i.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("create index error: %s", res.Status())
	}

	return nil
}

var _ Indexer = (*ElasticsearchIndexer)(nil)
