package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "commentboard_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ImportRecords counts importer outcomes per record.
	ImportRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentboard_import_records_total",
		Help: "Total number of comment records processed by the importer",
	}, []string{"outcome"})

	// CommentWrites counts successful comment mutations through the API.
	CommentWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentboard_comment_writes_total",
		Help: "Total number of comment writes by operation",
	}, []string{"operation"})

	// CacheLookups counts cache hits and misses by key family.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentboard_cache_lookups_total",
		Help: "Total number of cache lookups by key family and result",
	}, []string{"family", "result"})

	// WebSocketConnections is the gauge of live-feed websocket connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "commentboard_websocket_connections",
		Help: "Number of active live-feed websocket connections",
	})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
