package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"

	"github.com/werklead/go-ingest/internal/domain"
)

// SearchIndexer mirrors inserted vacancies into Elasticsearch so downstream
// review tooling can search them. Indexing is best-effort: failures are
// logged by the caller and never block persistence.
type SearchIndexer struct {
	client    *elasticsearch.Client
	indexName string
	logger    *zap.Logger
}

// NewSearchIndexer creates an Elasticsearch-backed vacancy indexer.
func NewSearchIndexer(addresses []string, indexName string, logger *zap.Logger) (*SearchIndexer, error) {
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

	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchIndexer{client: client, indexName: indexName, logger: logger}, nil
}

// BulkIndex indexes multiple vacancies at once
func (i *SearchIndexer) BulkIndex(ctx context.Context, vacancies []*domain.Vacancy) error {
	if len(vacancies) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, v := range vacancies {
		meta := map[string]any{
			"index": map[string]any{
				"_index": i.indexName,
				"_id":    fmt.Sprintf("%s:%d", v.ExternalID, v.SourceID),
			},
		}
		metaBytes, _ := json.Marshal(meta)
		buf.Write(metaBytes)
		buf.WriteByte('\n')

		docBytes, err := json.Marshal(v)
		if err != nil {
			i.logger.Warn("marshal vacancy", zap.String("external_id", v.ExternalID), zap.Error(err))
			continue
		}
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
				i.logger.Warn("bulk index error",
					zap.String("id", item.Index.ID),
					zap.String("type", item.Index.Error.Type),
					zap.String("reason", item.Index.Error.Reason))
			}
		}
	}

	return nil
}

// EnsureIndex creates the index with Dutch-friendly settings if it doesn't exist
func (i *SearchIndexer) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.indexName})
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	mapping := `{
		"settings": {
			"analysis": {
				"analyzer": {
					"dutch_folding": {
						"type": "custom",
						"tokenizer": "standard",
						"filter": ["lowercase", "asciifolding"]
					}
				}
			}
		},
		"mappings": {
			"properties": {
				"external_id": {"type": "keyword"},
				"source_id": {"type": "long"},
				"company_id": {"type": "long"},
				"title": {
					"type": "text",
					"analyzer": "dutch_folding",
					"fields": {"keyword": {"type": "keyword"}}
				},
				"description_text": {"type": "text", "analyzer": "dutch_folding"},
				"url": {"type": "keyword"},
				"city": {"type": "keyword"},
				"province": {"type": "keyword"},
				"postal_code": {"type": "keyword"},
				"employment_type": {"type": "keyword"},
				"education_level": {"type": "keyword"},
				"salary": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
				"salary_min": {"type": "double"},
				"salary_max": {"type": "double"},
				"hours_min": {"type": "integer"},
				"hours_max": {"type": "integer"},
				"content_hash": {"type": "keyword"},
				"status": {"type": "keyword"},
				"posted_at": {"type": "date"},
				"expires_at": {"type": "date"},
				"ingested_at": {"type": "date"}
			}
		}
	}`

	res, err = i.client.Indices.Create(
		i.indexName,
		i.client.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
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
