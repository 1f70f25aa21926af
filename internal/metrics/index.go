package metrics

import "github.com/prometheus/client_golang/prometheus"

// Index and Census API Prometheus metrics.
var (
	IndexDocuments = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_documents",
			Help:      "Number of documents in the published index",
		},
		[]string{"index"},
	)

	IndexLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_loads_total",
			Help:      "Index load and build attempts",
		},
		[]string{"index", "source", "status"}, // source: snapshot / build / rebuild
	)

	IndexSearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_search_duration_seconds",
			Help:      "Semantic search duration including query embedding",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"index"},
	)

	CensusRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "census_requests_total",
			Help:      "Census API requests by endpoint kind and outcome",
		},
		[]string{"endpoint", "status"},
	)

	CensusRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "census_request_duration_seconds",
			Help:      "Census API request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)
)

var indexMetricsRegistered bool

// RegisterIndexMetrics registers index and Census API metrics. Must be called once from main.
func RegisterIndexMetrics() {
	if indexMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexDocuments)
	prometheus.MustRegister(IndexLoadsTotal)
	prometheus.MustRegister(IndexSearchDuration)
	prometheus.MustRegister(CensusRequestsTotal)
	prometheus.MustRegister(CensusRequestDuration)
	indexMetricsRegistered = true
}
