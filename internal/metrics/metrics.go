// Package metrics exposes Prometheus instrumentation for the computation
// pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ComputationsTotal counts per-product computation units by outcome
	// (success, insufficient_data, error, rejected).
	ComputationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smd",
		Name:      "computations_total",
		Help:      "Per-product computation units by outcome.",
	}, []string{"outcome"})

	// ComputationDuration observes wall time of one product's unit of work.
	ComputationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "smd",
		Name:      "computation_duration_seconds",
		Help:      "Duration of a single product computation.",
		Buckets:   prometheus.DefBuckets,
	})

	// BatchRunsTotal counts batch computation runs.
	BatchRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "smd",
		Name:      "batch_runs_total",
		Help:      "Batch computation runs started.",
	})

	// OpportunityRequests counts opportunity-score requests by result
	// (ok, no_pmn, not_found, error).
	OpportunityRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smd",
		Name:      "opportunity_requests_total",
		Help:      "Opportunity score requests by result.",
	}, []string{"result"})
)

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
