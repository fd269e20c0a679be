// Package metrics provides Prometheus metrics for the Fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal tracks job completions by type and terminal status
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "jobs",
			Name:      "total",
			Help:      "Total number of jobs by type and terminal status",
		},
		[]string{"job_type", "status"},
	)

	// JobDuration tracks job run duration in seconds
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Duration of job runs in seconds",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"job_type"},
	)

	// JobsInFlight tracks jobs currently being processed
	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fern",
			Subsystem: "jobs",
			Name:      "in_flight",
			Help:      "Number of jobs currently being processed",
		},
	)

	// ViolationsTotal tracks rule violations found during validation
	ViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "validation",
			Name:      "violations_total",
			Help:      "Total number of rule violations by file type and severity",
		},
		[]string{"file_type", "severity"},
	)

	// RowsStagedTotal tracks staged rows by file type
	RowsStagedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "staging",
			Name:      "rows_total",
			Help:      "Total number of rows staged by file type",
		},
		[]string{"file_type"},
	)

	// PublicationsTotal tracks publish attempts by outcome
	PublicationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "publish",
			Name:      "total",
			Help:      "Total number of publication attempts by outcome",
		},
		[]string{"outcome"},
	)

	// PublishDuration tracks end-to-end publication duration
	PublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "publish",
			Name:      "duration_seconds",
			Help:      "Duration of publications in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	// KafkaMessagesConsumed tracks consumed upload-completion messages
	KafkaMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "kafka",
			Name:      "messages_consumed_total",
			Help:      "Total number of messages consumed by outcome",
		},
		[]string{"outcome"},
	)

	// DispatchClaimedTotal tracks jobs claimed by the dispatcher
	DispatchClaimedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "dispatch",
			Name:      "claimed_total",
			Help:      "Total number of ready jobs claimed by the dispatcher",
		},
	)
)

// RecordJob records one job completion
func RecordJob(jobType, status string, durationSeconds float64) {
	JobsTotal.WithLabelValues(jobType, status).Inc()
	JobDuration.WithLabelValues(jobType).Observe(durationSeconds)
}

// RecordViolations records violations found in one validation pass
func RecordViolations(fileType, severity string, count int) {
	if count > 0 {
		ViolationsTotal.WithLabelValues(fileType, severity).Add(float64(count))
	}
}

// RecordPublication records one publication attempt
func RecordPublication(outcome string, durationSeconds float64) {
	PublicationsTotal.WithLabelValues(outcome).Inc()
	PublishDuration.Observe(durationSeconds)
}
