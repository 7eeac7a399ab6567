// Package metrics provides internal metrics collection for the Labs job
// client. This package is internal and should not be imported by external
// projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector aggregates prometheus instruments for job submission and
// polling. A nil *Collector is valid and records nothing, so callers do
// not have to guard every observation site.
type Collector struct {
	jobsTotal       *prometheus.CounterVec
	pollAttempts    *prometheus.HistogramVec
	transientErrors *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
}

// NewCollector creates a metrics collector registered on reg. Pass
// prometheus.DefaultRegisterer for process-wide metrics or a private
// registry in tests.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		jobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_total",
				Help:      "Total number of generation jobs by terminal status",
			},
			[]string{"endpoint", "status"},
		),
		pollAttempts: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "poll_attempts",
				Help:      "Number of poll attempts per job",
				Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 900},
			},
			[]string{"endpoint"},
		),
		transientErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transient_errors_total",
				Help:      "Transient poll errors absorbed by the client",
			},
			[]string{"kind"},
		),
		jobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Wall-clock duration of generation jobs",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 11),
			},
			[]string{"endpoint"},
		),
	}
}

// RecordJob counts one finished job with its terminal status
// (ready, moderated, failed, timeout, error).
func (c *Collector) RecordJob(endpoint, status string) {
	if c == nil {
		return
	}
	c.jobsTotal.WithLabelValues(endpoint, status).Inc()
}

// ObservePollAttempts records how many poll attempts a job consumed.
func (c *Collector) ObservePollAttempts(endpoint string, attempts int) {
	if c == nil {
		return
	}
	c.pollAttempts.WithLabelValues(endpoint).Observe(float64(attempts))
}

// RecordTransient counts an absorbed transient error. Kind is one of
// server_error, rate_limited, network.
func (c *Collector) RecordTransient(kind string) {
	if c == nil {
		return
	}
	c.transientErrors.WithLabelValues(kind).Inc()
}

// ObserveJobDuration records the wall-clock duration of a finished job.
func (c *Collector) ObserveJobDuration(endpoint string, d time.Duration) {
	if c == nil {
		return
	}
	c.jobDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}
