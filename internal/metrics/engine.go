package metrics

import "github.com/prometheus/client_golang/prometheus"

// Indexing and query-engine Prometheus metrics.
var (
	IndexerRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caselex",
			Name:      "indexer_runs_total",
			Help:      "Total indexing runs",
		},
		[]string{"status"}, // "success" / "noop" / "error"
	)

	IndexerDecisionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "caselex",
			Name:      "indexer_decisions_total",
			Help:      "Total decisions appended to area indexes",
		},
	)

	IndexerAreasTouched = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "caselex",
			Name:      "indexer_areas_touched",
			Help:      "Legal areas touched per indexing run",
			Buckets:   []float64{1, 2, 5, 10, 20, 50},
		},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caselex",
			Name:      "search_requests_total",
			Help:      "Total search requests",
		},
		[]string{"mode", "status"}, // mode: "semantic" / "keyword_only"
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "caselex",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	SearchAreasScanned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "caselex",
			Name:      "search_areas_scanned",
			Help:      "Area indexes scanned per query",
			Buckets:   []float64{1, 2, 5, 10, 20},
		},
	)
)

var engineMetricsRegistered bool

// RegisterEngineMetrics registers indexer and search metrics. Must be called once from main.
func RegisterEngineMetrics() {
	if engineMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexerRunsTotal)
	prometheus.MustRegister(IndexerDecisionsTotal)
	prometheus.MustRegister(IndexerAreasTouched)
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchAreasScanned)
	engineMetricsRegistered = true
}
