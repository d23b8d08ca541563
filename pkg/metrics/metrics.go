package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegistrationAttempts records registration attempts by result (success|failure).
	RegistrationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studysite_registration_attempts_total",
			Help: "Total number of registration attempts",
		},
		[]string{"result"},
	)

	// ConfirmationResults counts confirmation outcomes
	// (success|expired|already_used|invalid|persist_failed).
	ConfirmationResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studysite_confirmation_results_total",
			Help: "Total number of account confirmation attempts by outcome",
		},
		[]string{"outcome"},
	)

	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studysite_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// EmailDispatches counts outbound confirmation emails by result (sent|failed|skipped).
	EmailDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studysite_email_dispatches_total",
			Help: "Total number of confirmation email dispatch attempts",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studysite_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
