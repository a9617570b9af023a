package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsdex",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"section", "mode", "outcome"},
	)

	SearchCompileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "newsdex",
			Name:      "search_compile_duration_seconds",
			Help:      "Time spent turning a search request into an index request",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
	)

	ChainResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsdex",
			Name:      "chain_resolutions_total",
			Help:      "Version chain resolutions by the path that produced the answer",
		},
		[]string{"path"}, // latest / lookup / walk / dangling / cycle
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchCompileDuration)
	prometheus.MustRegister(ChainResolutionsTotal)
	searchMetricsRegistered = true
}
