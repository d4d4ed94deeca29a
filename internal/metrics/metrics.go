package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookflow_events_emitted_total",
			Help: "Total number of events emitted into the delivery pipeline.",
		},
		[]string{"tenant_id"},
	)

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookflow_deliveries_total",
			Help: "Total number of delivery attempts by outcome status.",
		},
		[]string{"status"},
	)

	RetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookflow_retries_total",
			Help: "Total number of scheduled retries by failure reason.",
		},
		[]string{"reason"}, // e.g. HTTP_500, TIMEOUT, TRANSPORT
	)

	TerminalFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hookflow_terminal_failures_total",
			Help: "Total number of delivery chains that exhausted retries or were cut short.",
		},
	)

	RecoveredRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hookflow_recovered_retries_total",
			Help: "Retrying deliveries found in the store during worker start-up recovery.",
		},
	)

	AttemptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hookflow_attempt_duration_seconds",
			Help:    "HTTP delivery attempt latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hookflow_dispatch_queue_depth",
			Help: "Current number of events buffered in the dispatch queue.",
		},
	)

	QueueDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hookflow_dispatch_queue_dropped_total",
			Help: "Enqueue attempts rejected because the dispatch queue was full.",
		},
	)
)

func MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(
		EventsEmittedTotal,
		DeliveriesTotal,
		RetriesTotal,
		TerminalFailuresTotal,
		RecoveredRetriesTotal,
		AttemptDuration,
		QueueDepth,
		QueueDroppedTotal,
	)
}

// RecordEventEmitted increments the emitted-events counter for a tenant.
func RecordEventEmitted(tenantID string) {
	EventsEmittedTotal.WithLabelValues(tenantID).Inc()
}

// RecordAttempt records one delivery attempt outcome and its latency.
func RecordAttempt(status string, d time.Duration) {
	DeliveriesTotal.WithLabelValues(status).Inc()
	AttemptDuration.WithLabelValues(status).Observe(d.Seconds())
}

// RecordRetry increments the retry counter for the given failure reason.
func RecordRetry(reason string) {
	RetriesTotal.WithLabelValues(reason).Inc()
}
