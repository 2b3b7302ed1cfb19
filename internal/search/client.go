package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/contentanonymity/backend/internal/config"
	"github.com/contentanonymity/backend/internal/models"
	"github.com/contentanonymity/backend/internal/telemetry"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esapi"
)

// IndexContent holds every searchable kind
const IndexContent = "content"

// Query is a full-text search request
type Query struct {
	Text   string             `json:"q"`
	Kind   models.ContentKind `json:"kind,omitempty"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

func (q *Query) normalize() {
	q.Text = strings.TrimSpace(q.Text)
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 50 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// Searcher runs a query against one backend
type Searcher interface {
	Search(ctx context.Context, q Query) (*Result, error)
}

// Client wraps the Elasticsearch client for the content index
type Client struct {
	es    *elasticsearch.Client
	index string
}

// NewClient connects to Elasticsearch and verifies the cluster answers
func NewClient(cfg config.ElasticsearchConfig) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: telemetry.NewInstrumentedTransport(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	client := &Client{es: es, index: IndexContent}
	if err := client.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	return client, nil
}

// Ping checks the cluster is reachable
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Info(c.es.Info.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("info returned %s", res.Status())
	}
	return nil
}

func contentMapping() map[string]interface{} {
	text := func(boost bool) map[string]interface{} {
		m := map[string]interface{}{"type": "text", "analyzer": "english"}
		if boost {
			m["fields"] = map[string]interface{}{
				"keyword": map[string]interface{}{"type": "keyword", "ignore_above": 256},
			}
		}
		return m
	}
	return map[string]interface{}{
		"mappings": map[string]interface{}{
			"_meta": map[string]interface{}{"version": IndexVersion},
			"properties": map[string]interface{}{
				"kind":         map[string]interface{}{"type": "keyword"},
				"id":           map[string]interface{}{"type": "keyword"},
				"slug":         map[string]interface{}{"type": "keyword"},
				"title":        text(true),
				"summary":      text(false),
				"body":         text(false),
				"category":     map[string]interface{}{"type": "keyword", "normalizer": "lowercase"},
				"tags":         map[string]interface{}{"type": "keyword", "normalizer": "lowercase"},
				"published_at": map[string]interface{}{"type": "date"},
			},
		},
		"settings": map[string]interface{}{
			"analysis": map[string]interface{}{
				"normalizer": map[string]interface{}{
					"lowercase": map[string]interface{}{
						"type":   "custom",
						"filter": []string{"lowercase"},
					},
				},
			},
		},
	}
}

// EnsureIndex creates the content index when it does not exist
func (c *Client) EnsureIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}

	mappingJSON, err := json.Marshal(contentMapping())
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	res, err = c.es.Indices.Create(c.index,
		c.es.Indices.Create.WithBody(bytes.NewReader(mappingJSON)),
		c.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("creating index", res)
	}
	return nil
}

// DeleteIndex drops the content index; a missing index is not an error
func (c *Client) DeleteIndex(ctx context.Context) error {
	res, err := c.es.Indices.Delete([]string{c.index}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("deleting index", res)
	}
	return nil
}

// Index writes one document
func (c *Client) Index(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := c.es.Index(c.index, bytes.NewReader(body),
		c.es.Index.WithDocumentID(doc.DocID()),
		c.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", doc.Kind, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError("indexing "+string(doc.Kind), res)
	}
	return nil
}

// Remove deletes one document; a missing document is not an error
func (c *Client) Remove(ctx context.Context, kind models.ContentKind, id string) error {
	res, err := c.es.Delete(c.index, DocID(kind, id), c.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("deleting "+string(kind), res)
	}
	return nil
}

// BulkIndex writes many documents in one request and returns how many failed
func (c *Client) BulkIndex(ctx context.Context, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		meta := map[string]interface{}{
			"index": map[string]interface{}{"_index": c.index, "_id": doc.DocID()},
		}
		if err := enc.Encode(meta); err != nil {
			return 0, err
		}
		if err := enc.Encode(doc); err != nil {
			return 0, err
		}
	}

	res, err := c.es.Bulk(&buf, c.es.Bulk.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to bulk index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, responseError("bulk indexing", res)
	}

	var bulkResp struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			Status int `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return 0, fmt.Errorf("failed to parse bulk response: %w", err)
	}

	failed := 0
	if bulkResp.Errors {
		for _, item := range bulkResp.Items {
			for _, op := range item {
				if op.Status >= 300 {
					failed++
				}
			}
		}
	}
	return failed, nil
}

// Search runs a fuzzy multi-field match, optionally restricted to one kind
func (c *Client) Search(ctx context.Context, q Query) (*Result, error) {
	q.normalize()

	must := []map[string]interface{}{
		{
			"multi_match": map[string]interface{}{
				"query":         q.Text,
				"fields":        []string{"title^3", "summary^2", "tags^2", "category", "body"},
				"fuzziness":     "AUTO",
				"prefix_length": 1,
			},
		},
	}
	filter := []map[string]interface{}{}
	if q.Kind != "" {
		filter = append(filter, map[string]interface{}{"term": map[string]interface{}{"kind": q.Kind}})
	}

	searchQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
		"_source": []string{"kind", "id", "slug", "title", "summary", "category"},
		"sort": []map[string]interface{}{
			{"_score": map[string]interface{}{"order": "desc"}},
			{"published_at": map[string]interface{}{"order": "desc", "unmapped_type": "date"}},
		},
		"from":             q.Offset,
		"size":             q.Limit,
		"track_total_hits": true,
	}

	queryJSON, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(queryJSON)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError("searching", res)
	}

	var searchResp struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Score  float64  `json:"_score"`
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	result := &Result{
		Hits:    make([]Hit, 0, len(searchResp.Hits.Hits)),
		Total:   searchResp.Hits.Total.Value,
		Backend: BackendElasticsearch,
	}
	for _, h := range searchResp.Hits.Hits {
		result.Hits = append(result.Hits, h.Source.hit(h.Score))
	}
	return result, nil
}

func responseError(action string, res *esapi.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	var errResp map[string]interface{}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return fmt.Errorf("error %s: [%s]", action, res.Status())
	}
	return fmt.Errorf("error %s: [%s] %v", action, res.Status(), errResp["error"])
}
