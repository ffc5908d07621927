// Package metric registers the service's Prometheus collectors.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckIns counts check-in attempts by outcome kind
	// (accepted, not_found, already_checked_in, empty_input,
	// persistence_failure).
	CheckIns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tixly_checkin_attempts_total",
		Help: "Check-in attempts by outcome kind",
	}, []string{"kind"})

	// Registrations counts accepted public registrations.
	Registrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tixly_registrations_total",
		Help: "Accepted public registrations",
	})

	// RegistrationRejections counts rejected registrations by reason
	// (closed, quota_full, invalid).
	RegistrationRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tixly_registration_rejections_total",
		Help: "Rejected public registrations by reason",
	}, []string{"reason"})

	// DirectoryLoads counts ticket directory loads and reloads.
	DirectoryLoads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tixly_directory_loads_total",
		Help: "Ticket directory loads and reloads",
	})

	// RequestDuration observes HTTP request latency by route pattern.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tixly_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"pattern", "status"})
)
