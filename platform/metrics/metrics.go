// Package metrics provides the prometheus instrumentation surface.
// This is part of the platform layer and contains no business logic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// JobsEnqueued counts jobs accepted by the dispatcher.
	JobsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_enqueued_total",
		Help: "The total number of enqueued jobs",
	}, []string{"domain", "type", "priority"})

	// JobsProcessed counts job handler outcomes.
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobs_processed_total",
		Help: "The total number of processed jobs",
	}, []string{"domain", "type", "status"}) // status: completed, rescheduled, skipped, failed

	// JobDuration observes handler execution time.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of job processing.",
		Buckets: prometheus.LinearBuckets(0.1, 0.2, 10),
	}, []string{"domain", "type"})

	// WebhookEvents counts inbound webhook dispositions.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "The total number of inbound webhook events",
	}, []string{"source", "status"}) // status: accepted, rejected, replayed, abandoned

	// Escalations counts SLA escalations by severity.
	Escalations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sla_escalations_total",
		Help: "The total number of SLA escalations raised",
	}, []string{"severity"})
)

// Handler returns the HTTP handler serving the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
