// Package metrics registers the Prometheus metrics used by keyguard.
// Import this package from the server entry point to register all metrics
// before the /metrics handler is mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// KeyChecks counts request key checks labelled by operation
	// ("require_existing", "require_valid") and outcome ("valid", "missing",
	// "unknown", "invalid", "store_error").
	KeyChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyguard_key_checks_total",
			Help: "Total number of API key checks by outcome.",
		},
		[]string{"operation", "outcome"},
	)

	// StoreDuration observes config store call latency in seconds.
	StoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keyguard_store_duration_seconds",
			Help:    "Config store operation duration in seconds.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"backend", "op"},
	)

	// StoreErrors counts failed config store calls.
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyguard_store_errors_total",
			Help: "Total config store errors by backend and operation.",
		},
		[]string{"backend", "op"},
	)

	// AdminMutations counts administrative writes ("create", "upsert",
	// "delete", "activate", "deactivate").
	AdminMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyguard_admin_mutations_total",
			Help: "Total administrative key mutations.",
		},
		[]string{"action"},
	)
)
