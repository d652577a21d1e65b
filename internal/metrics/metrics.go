// Package metrics holds the Prometheus collectors of the pricing engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_candidate_queries_total",
			Help: "Candidate queries by outcome (ok, partial, invalid)",
		},
		[]string{"outcome"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricing_candidate_query_duration_seconds",
			Help:    "Duration of candidate queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"device_type"},
	)

	CandidatesReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricing_candidates_returned",
			Help:    "Number of candidates returned per query",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	StagePrices = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_stage_prices_total",
			Help: "Prices contributed by each resolution stage before merging",
		},
		[]string{"pricing_type"},
	)

	StageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_stage_errors_total",
			Help: "Catalog read failures that degraded a query stage",
		},
		[]string{"stage"},
	)

	UnresolvedIssues = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricing_unresolved_issues_total",
			Help: "Requested issues no catalog layer could price",
		},
	)

	CircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pricing_catalog_circuit_state",
			Help: "Catalog circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
	)
)
