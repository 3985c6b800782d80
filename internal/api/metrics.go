package api

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Query outcomes recorded by the queries counter.
const (
	outcomeHit   = "hit"
	outcomeMiss  = "miss"
	outcomeEmpty = "empty"
)

// Metrics holds the Prometheus collectors of one server. Each server owns its
// registry so several servers can live in one process (tests do this).
type Metrics struct {
	registry *prometheus.Registry

	QueriesTotal  *prometheus.CounterVec
	QueryDuration prometheus.Histogram
	ResultsCount  prometheus.Histogram
}

// NewMetrics creates and registers the search metrics.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "livesearch"
	}
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of search queries by outcome",
		}, []string{"outcome"}),
		QueryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time spent matching a query against the index",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}),
		ResultsCount: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_results",
			Help:      "Number of results returned per query",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// observe records one answered query.
func (m *Metrics) observe(outcome string, results int, elapsed time.Duration) {
	m.QueriesTotal.WithLabelValues(outcome).Inc()
	if outcome == outcomeEmpty {
		return
	}
	m.QueryDuration.Observe(elapsed.Seconds())
	m.ResultsCount.Observe(float64(results))
}
