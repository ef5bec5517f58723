// Package metrics collects and exposes Prometheus metrics for the shell.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/divedesk/divegate/identity"
	"github.com/divedesk/divegate/router"
)

// Collector records resolution outcomes. It implements router.Recorder.
type Collector struct {
	resolutions    *prometheus.CounterVec
	failedOpen     prometheus.Counter
	resolveLatency prometheus.Histogram
}

var _ router.Recorder = (*Collector)(nil)

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "divegate_resolutions_total",
			Help: "Completed resolution passes by destination and result kind",
		}, []string{"destination", "kind"}),
		failedOpen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "divegate_resolutions_failed_open_total",
			Help: "Resolution passes that landed on onboarding via the fail-open path",
		}),
		resolveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "divegate_resolve_latency_seconds",
			Help:    "Latency of resolution passes",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.resolutions,
		c.failedOpen,
		c.resolveLatency,
	)

	return c
}

// RecordResolution records one completed resolution pass.
func (c *Collector) RecordResolution(destination router.Destination, kind identity.Kind, elapsed time.Duration) {
	c.resolutions.WithLabelValues(destination.String(), kind.String()).Inc()
	if kind == identity.KindServerError || kind == identity.KindMalformed {
		c.failedOpen.Inc()
	}
	c.resolveLatency.Observe(elapsed.Seconds())
}
