package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the daemon's Prometheus metrics.
type Metrics struct {
	// ToolCallCounter counts tool invocations.
	// Labels: tool, status (success|error), transport (stdio|http)
	ToolCallCounter *prometheus.CounterVec

	// ToolCallDuration measures tool execution time in seconds.
	// Labels: tool
	ToolCallDuration *prometheus.HistogramVec

	// ErrorCounter tracks typed errors by kind.
	// Labels: kind
	ErrorCounter *prometheus.CounterVec

	// DBHealthy is 1 while the storage pool is serving queries.
	DBHealthy prometheus.Gauge

	// PoolUtilization is active connections over pool capacity, 0..1.
	PoolUtilization prometheus.Gauge

	// EmbeddingCacheHits counts embedder cache hits and misses.
	// Labels: result (hit|miss)
	EmbeddingCacheHits *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the given registerer.
// Pass prometheus.DefaultRegisterer in production; a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ToolCallCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aidis_tool_calls_total",
			Help: "Total tool invocations by tool, status and transport.",
		}, []string{"tool", "status", "transport"}),

		ToolCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aidis_tool_call_duration_seconds",
			Help:    "Tool execution latency in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"tool"}),

		ErrorCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aidis_errors_total",
			Help: "Typed errors surfaced to callers, by kind.",
		}, []string{"kind"}),

		DBHealthy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aidis_db_healthy",
			Help: "1 while the storage pool is serving queries.",
		}),

		PoolUtilization: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aidis_db_pool_utilization",
			Help: "Active connections over pool capacity.",
		}),

		EmbeddingCacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aidis_embedding_cache_total",
			Help: "Embedder cache lookups by result.",
		}, []string{"result"}),
	}
}
