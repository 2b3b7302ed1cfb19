package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPResponseSize      *prometheus.HistogramVec
	HTTPActiveConnections *prometheus.GaugeVec

	// Cache metrics
	CacheHitsTotal          *prometheus.CounterVec
	CacheMissesTotal        *prometheus.CounterVec
	CacheInvalidationsTotal *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitExceededTotal *prometheus.CounterVec

	// Database metrics
	DatabaseConnectionsOpen *prometheus.GaugeVec

	// Content metrics
	ContentViewsTotal     *prometheus.CounterVec
	ContentMutationsTotal *prometheus.CounterVec
	DownloadsTotal        *prometheus.CounterVec
	ForumActivityTotal    *prometheus.CounterVec

	// Gamification metrics
	PointsAwardedTotal *prometheus.CounterVec
	BadgesAwardedTotal *prometheus.CounterVec

	// Import metrics
	ImportRunsTotal *prometheus.CounterVec
	ImportRowsTotal *prometheus.CounterVec

	// Web Vitals metrics
	WebVitals              *prometheus.HistogramVec
	WebVitalsRejectedTotal *prometheus.CounterVec

	// Search metrics
	SearchQueriesTotal  *prometheus.CounterVec
	SearchQueryDuration *prometheus.HistogramVec
	SearchIndexOpsTotal *prometheus.CounterVec

	// Outbound integrations (s3, ses, stream)
	ExternalCallsTotal *prometheus.CounterVec

	// Error metrics
	ErrorsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPResponseSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			CacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),
			CacheInvalidationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_invalidations_total",
					Help: "Total number of cache keys invalidated",
				},
				[]string{"cache_name"},
			),

			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of rate limit violations",
				},
				[]string{"endpoint", "method"},
			),

			DatabaseConnectionsOpen: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "database_connections_open",
					Help: "Number of currently open database connections",
				},
				[]string{"database"},
			),

			ContentViewsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "content_views_total",
					Help: "Recorded content views by kind",
				},
				[]string{"kind"},
			),
			ContentMutationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "content_mutations_total",
					Help: "Catalog create/update/delete operations",
				},
				[]string{"kind", "operation"},
			),
			DownloadsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "template_downloads_total",
					Help: "Template downloads by format",
				},
				[]string{"format"},
			),
			ForumActivityTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "forum_activity_total",
					Help: "Forum posts, replies and votes",
				},
				[]string{"action"},
			),

			PointsAwardedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "points_awarded_total",
					Help: "Gamification points awarded by action",
				},
				[]string{"action"},
			),
			BadgesAwardedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "badges_awarded_total",
					Help: "Badges awarded by key",
				},
				[]string{"badge"},
			),

			ImportRunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "import_runs_total",
					Help: "Bulk import runs by entity",
				},
				[]string{"entity", "dry_run"},
			),
			ImportRowsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "import_rows_total",
					Help: "Bulk import rows by entity and outcome",
				},
				[]string{"entity", "outcome"},
			),

			WebVitals: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "web_vitals_value",
					Help:    "Browser Web Vitals samples (milliseconds, CLS unitless)",
					Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 50, 100, 200, 300, 500, 800, 1000, 1800, 2500, 3000, 4000, 6000, 10000},
				},
				[]string{"metric", "rating"},
			),
			WebVitalsRejectedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "web_vitals_rejected_total",
					Help: "Web Vitals samples rejected by reason",
				},
				[]string{"reason"},
			),

			SearchQueriesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "search_queries_total",
					Help: "Total number of search queries",
				},
				[]string{"backend", "status"},
			),
			SearchQueryDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "search_query_duration_seconds",
					Help:    "Search query duration in seconds",
					Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
				},
				[]string{"backend"},
			),
			SearchIndexOpsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "search_index_operations_total",
					Help: "Search index writes and deletes",
				},
				[]string{"operation", "status"},
			),

			ExternalCallsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "external_calls_total",
					Help: "Calls to external services",
				},
				[]string{"service", "operation", "status"},
			),

			ErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by type",
				},
				[]string{"error_type", "endpoint"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	return Initialize()
}

// Status renders an error as a metric label
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
