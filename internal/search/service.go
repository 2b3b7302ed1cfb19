package search

import (
	"context"
	"time"

	"github.com/contentanonymity/backend/internal/logger"
	"github.com/contentanonymity/backend/internal/metrics"
	"github.com/contentanonymity/backend/internal/models"
	"go.uber.org/zap"
)

type indexer interface {
	Index(ctx context.Context, doc Document) error
	Remove(ctx context.Context, kind models.ContentKind, id string) error
}

// Service answers searches from Elasticsearch when it is up and from the
// database otherwise, and keeps the index in step with content writes
type Service struct {
	primary  Searcher
	fallback Searcher
	indexer  indexer
	pinger   interface {
		Ping(ctx context.Context) error
	}
}

// NewService builds the search service. client may be nil, in which case
// every query goes to fallback and index writes are skipped.
func NewService(client *Client, fallback Searcher) *Service {
	s := &Service{fallback: fallback}
	if client != nil {
		s.primary = NewCachedSearcher(client, DefaultCacheTTL)
		s.indexer = client
		s.pinger = client
	}
	return s
}

// Enabled reports whether Elasticsearch is wired in
func (s *Service) Enabled() bool {
	return s.primary != nil
}

// Ping checks the cluster; it is a no-op without Elasticsearch
func (s *Service) Ping(ctx context.Context) error {
	if s.pinger == nil {
		return nil
	}
	return s.pinger.Ping(ctx)
}

// Search runs q, falling back to the database when Elasticsearch fails
func (s *Service) Search(ctx context.Context, q Query) (*Result, error) {
	q.normalize()

	if s.primary != nil {
		start := time.Now()
		result, err := s.primary.Search(ctx, q)
		if err == nil {
			metrics.Search().RecordQuery(metrics.QueryMetric{
				Backend:     BackendElasticsearch,
				ResultCount: len(result.Hits),
				Duration:    time.Since(start),
				CacheHit:    result.Cached,
			})
			return result, nil
		}
		metrics.Search().RecordQuery(metrics.QueryMetric{
			Backend:  BackendElasticsearch,
			Duration: time.Since(start),
			Error:    true,
		})
		logger.Log.Warn("Elasticsearch query failed, falling back to database",
			zap.String("query", q.Text), zap.Error(err))
	}

	start := time.Now()
	result, err := s.fallback.Search(ctx, q)
	metrics.Search().RecordQuery(metrics.QueryMetric{
		Backend:     BackendDatabase,
		ResultCount: resultCount(result),
		Duration:    time.Since(start),
		Error:       err != nil,
	})
	return result, err
}

// Sync indexes a published document or removes an unpublished one, then
// drops cached result pages. Index failures are logged and never returned;
// the reindex job repairs drift.
func (s *Service) Sync(ctx context.Context, doc Document) {
	if !doc.Published {
		s.Remove(ctx, doc.Kind, doc.ID)
		return
	}
	if s.indexer != nil {
		err := s.indexer.Index(ctx, doc)
		recordIndexOp("index", err)
		if err != nil {
			logger.Log.Warn("Failed to index document",
				logger.WithContentID(string(doc.Kind), doc.ID), zap.Error(err))
		}
	}
	s.invalidate(ctx)
}

// Remove drops a document from the index
func (s *Service) Remove(ctx context.Context, kind models.ContentKind, id string) {
	if s.indexer != nil {
		err := s.indexer.Remove(ctx, kind, id)
		recordIndexOp("delete", err)
		if err != nil {
			logger.Log.Warn("Failed to remove document from index",
				logger.WithContentID(string(kind), id), zap.Error(err))
		}
	}
	s.invalidate(ctx)
}

func (s *Service) invalidate(ctx context.Context) {
	if err := InvalidateCache(ctx); err != nil {
		logger.Log.Debug("Failed to invalidate search cache", zap.Error(err))
	}
}

func recordIndexOp(op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.Get().SearchIndexOpsTotal.WithLabelValues(op, status).Inc()
}

func resultCount(r *Result) int {
	if r == nil {
		return 0
	}
	return len(r.Hits)
}
