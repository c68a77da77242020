// metrics.go defines Prometheus metrics for crash submissions.

package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes.
const (
	outcomeSuccess   = "success"
	outcomeInvalid   = "invalid"
	outcomeTransport = "transport_error"
	outcomePanic     = "panic"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ctd_submissions_total",
			Help: "Total number of crash report submissions by outcome",
		},
		[]string{"outcome"},
	)

	submissionsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ctd_submissions_dropped_total",
			Help: "Total number of crash submissions dropped because another was in flight",
		},
	)

	submissionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ctd_submission_duration_seconds",
			Help:    "Crash submission latency in seconds, from worker start to outcome",
			Buckets: prometheus.DefBuckets,
		},
	)
)
