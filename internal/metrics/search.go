package metrics

import "github.com/prometheus/client_golang/prometheus"

// Namespace prefixes every metric of the service.
const Namespace = "picmap"

// Search backend and session metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_requests_total",
			Help:      "Total number of search backend requests",
		},
		[]string{"doc_type", "status"},
	)

	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "search_request_duration_seconds",
			Help:      "Search backend request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"doc_type"},
	)

	SearchHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_hits_total",
			Help:      "Total documents returned by the search backend",
		},
		[]string{"doc_type"},
	)

	PagesFetchedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "pages_fetched_total",
			Help:      "Total result pages merged into a generation",
		},
	)

	StaleResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "stale_responses_total",
			Help:      "Responses dropped because their generation was superseded",
		},
		[]string{"kind"}, // "addresses" / "constituents"
	)

	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "generations_total",
			Help:      "Filter generations by outcome",
		},
		[]string{"outcome"}, // "done" / "failed" / "base"
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_sessions",
			Help:      "Number of open interactive sessions",
		},
	)

	VocabularyLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "vocabulary_loads_total",
			Help:      "Vocabulary reads by result",
		},
		[]string{"result"}, // "cache" / "store" / "error"
	)

	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_cache_total",
			Help:      "Search response cache lookups",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search and session metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchRequestDuration)
	prometheus.MustRegister(SearchHitsTotal)
	prometheus.MustRegister(PagesFetchedTotal)
	prometheus.MustRegister(StaleResponsesTotal)
	prometheus.MustRegister(GenerationsTotal)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(VocabularyLoadsTotal)
	prometheus.MustRegister(SearchCacheTotal)
	searchMetricsRegistered = true
}
