package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commune_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "commune_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CacheHits counts cache-aside hits by key prefix.
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commune_cache_hits_total",
		Help: "Total number of cache hits by key prefix",
	}, []string{"prefix"})

	// CacheMisses counts cache-aside misses by key prefix.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commune_cache_misses_total",
		Help: "Total number of cache misses by key prefix",
	}, []string{"prefix"})

	// ModelCallLatency records model service call latency by operation.
	ModelCallLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "commune_model_call_latency_seconds",
		Help:    "Model service call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// ModelCallErrors counts failed model service calls by operation and reason.
	ModelCallErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commune_model_call_errors_total",
		Help: "Total number of failed model service calls",
	}, []string{"operation", "reason"})

	// UploadsTotal counts accepted image uploads by detected format.
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commune_uploads_total",
		Help: "Total number of accepted image uploads by format",
	}, []string{"format"})

	// UploadsRejected counts rejected uploads by reason.
	UploadsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commune_uploads_rejected_total",
		Help: "Total number of rejected uploads by reason",
	}, []string{"reason"})

	// LikeToggles counts like toggles by outcome (liked, unliked).
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commune_like_toggles_total",
		Help: "Total number of like toggles by outcome",
	}, []string{"outcome"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}

// ObserveModelCall records latency for a model service call.
func ObserveModelCall(operation string, start time.Time) {
	ModelCallLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
