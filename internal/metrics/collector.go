// Package metrics provides internal metrics collection for the cast
// loop. This package is internal and should not be imported by
// external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records cast-loop metrics.
type Collector struct {
	castsTotal      *prometheus.CounterVec
	attemptsTotal   *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	decodeFailures  *prometheus.CounterVec
	retryExhausted  prometheus.Counter
	cacheComputes   prometheus.Counter
}

// NewCollector creates a collector registered on reg. A nil reg uses
// the default registerer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		castsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "casts_total",
				Help:      "Total number of cast calls by final outcome",
			},
			[]string{"root", "outcome"},
		),
		attemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempts_total",
				Help:      "Total number of generation attempts by result",
			},
			[]string{"root", "result"},
		),
		attemptDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "attempt_duration_seconds",
				Help:      "Duration of one generate-extract-decode attempt",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"root"},
		),
		decodeFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decode_failures_total",
				Help:      "Total number of decode failures by error code",
			},
			[]string{"root", "code"},
		),
		retryExhausted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_exhausted_total",
				Help:      "Total number of casts that exhausted their retry budget",
			},
		),
		cacheComputes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_computes_total",
				Help:      "Total number of schema derivations actually computed",
			},
		),
	}
}

// RecordCast records the final outcome of one cast call.
func (c *Collector) RecordCast(root, outcome string) {
	c.castsTotal.WithLabelValues(root, outcome).Inc()
}

// RecordAttempt records one generate-extract-decode cycle.
func (c *Collector) RecordAttempt(root, result string, d time.Duration) {
	c.attemptsTotal.WithLabelValues(root, result).Inc()
	c.attemptDuration.WithLabelValues(root).Observe(d.Seconds())
}

// RecordDecodeFailure records a decode or extraction failure.
func (c *Collector) RecordDecodeFailure(root, code string) {
	c.decodeFailures.WithLabelValues(root, code).Inc()
}

// RecordRetryExhausted records a cast that ran out of retry budget.
func (c *Collector) RecordRetryExhausted() {
	c.retryExhausted.Inc()
}

// RecordSchemaCompute records one actual schema derivation.
func (c *Collector) RecordSchemaCompute() {
	c.cacheComputes.Inc()
}
