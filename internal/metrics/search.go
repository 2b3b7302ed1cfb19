package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

const maxTimings = 10000

// SearchStats keeps in-process search counters for the admin stats endpoint.
// Prometheus holds the same data for dashboards.
type SearchStats struct {
	QueryCount    int64
	FallbackCount int64
	CacheHits     int64
	CacheMisses   int64
	ErrorCount    int64
	TotalResults  int64

	mu      sync.Mutex
	timings []int64 // milliseconds, capped at maxTimings
}

// QueryMetric represents a single search query's metrics
type QueryMetric struct {
	Backend     string // "elasticsearch" or "database"
	ResultCount int
	Duration    time.Duration
	CacheHit    bool
	Error       bool
}

var (
	searchStats     *SearchStats
	searchStatsOnce sync.Once
)

// Search returns the process-wide search stats
func Search() *SearchStats {
	searchStatsOnce.Do(func() {
		searchStats = &SearchStats{timings: make([]int64, 0, 1024)}
	})
	return searchStats
}

// RecordQuery updates counters and exports to Prometheus
func (s *SearchStats) RecordQuery(m QueryMetric) {
	atomic.AddInt64(&s.QueryCount, 1)
	atomic.AddInt64(&s.TotalResults, int64(m.ResultCount))

	status := "ok"
	if m.Error {
		atomic.AddInt64(&s.ErrorCount, 1)
		status = "error"
	}
	if m.Backend == "database" {
		atomic.AddInt64(&s.FallbackCount, 1)
	}

	if m.CacheHit {
		atomic.AddInt64(&s.CacheHits, 1)
		Get().CacheHitsTotal.WithLabelValues("search").Inc()
		return
	}
	atomic.AddInt64(&s.CacheMisses, 1)
	Get().CacheMissesTotal.WithLabelValues("search").Inc()

	s.mu.Lock()
	if len(s.timings) < maxTimings {
		s.timings = append(s.timings, m.Duration.Milliseconds())
	}
	s.mu.Unlock()

	Get().SearchQueriesTotal.WithLabelValues(m.Backend, status).Inc()
	Get().SearchQueryDuration.WithLabelValues(m.Backend).Observe(m.Duration.Seconds())
}

// GetStats returns current counters and latency percentiles
func (s *SearchStats) GetStats() map[string]interface{} {
	queries := atomic.LoadInt64(&s.QueryCount)
	hits := atomic.LoadInt64(&s.CacheHits)

	var hitRate float64
	if queries > 0 {
		hitRate = float64(hits) / float64(queries) * 100
	}

	p50, p95, p99 := s.percentiles()
	return map[string]interface{}{
		"total_queries":     queries,
		"fallback_queries":  atomic.LoadInt64(&s.FallbackCount),
		"cache_hits":        hits,
		"cache_misses":      atomic.LoadInt64(&s.CacheMisses),
		"cache_hit_rate":    hitRate,
		"error_count":       atomic.LoadInt64(&s.ErrorCount),
		"total_results":     atomic.LoadInt64(&s.TotalResults),
		"p50_query_time_ms": p50,
		"p95_query_time_ms": p95,
		"p99_query_time_ms": p99,
	}
}

func (s *SearchStats) percentiles() (p50, p95, p99 int64) {
	s.mu.Lock()
	timings := append([]int64(nil), s.timings...)
	s.mu.Unlock()

	n := len(timings)
	if n == 0 {
		return 0, 0, 0
	}
	sort.Slice(timings, func(i, j int) bool { return timings[i] < timings[j] })
	return timings[n*50/100], timings[n*95/100], timings[n*99/100]
}

// Reset clears all counters
func (s *SearchStats) Reset() {
	atomic.StoreInt64(&s.QueryCount, 0)
	atomic.StoreInt64(&s.FallbackCount, 0)
	atomic.StoreInt64(&s.CacheHits, 0)
	atomic.StoreInt64(&s.CacheMisses, 0)
	atomic.StoreInt64(&s.ErrorCount, 0)
	atomic.StoreInt64(&s.TotalResults, 0)

	s.mu.Lock()
	s.timings = s.timings[:0]
	s.mu.Unlock()
}
