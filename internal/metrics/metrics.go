// Package metrics collects and exposes Prometheus metrics for the listing API
// and the webhook mirror.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomeNotFound   = "not_found"
	OutcomeError      = "error"

	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"

	LoginSucceeded = "succeeded"
	LoginRejected  = "rejected"
)

// Recorder is the metrics surface used by the service and mirror layers.
type Recorder interface {
	RecordListingMutation(op, outcome string)
	RecordMirrorDelivery(event, outcome string, duration time.Duration)
	RecordMirrorDropped(event string)
	RecordMirrorDeadLettered(event string)
	SetMirrorQueueDepth(depth int)
	RecordLogin(outcome string)
}

type Collector struct {
	listingMutations   *prometheus.CounterVec
	mirrorDeliveries   *prometheus.CounterVec
	mirrorLatency      prometheus.Histogram
	mirrorDropped      *prometheus.CounterVec
	mirrorDeadLettered *prometheus.CounterVec
	mirrorQueueDepth   prometheus.Gauge
	logins             *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		listingMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propdash_listing_mutations_total",
			Help: "Listing mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		mirrorDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propdash_mirror_deliveries_total",
			Help: "Webhook mirror delivery attempts by event and outcome.",
		}, []string{"event", "outcome"}),
		mirrorLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "propdash_mirror_delivery_seconds",
			Help:    "Webhook mirror delivery latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		mirrorDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propdash_mirror_dropped_total",
			Help: "Mirror events dropped because the dispatch queue was full.",
		}, []string{"event"}),
		mirrorDeadLettered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propdash_mirror_dead_lettered_total",
			Help: "Mirror events handed to the dead-letter sink.",
		}, []string{"event"}),
		mirrorQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "propdash_mirror_queue_depth",
			Help: "Mirror events waiting for a dispatcher worker.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "propdash_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.listingMutations,
		c.mirrorDeliveries,
		c.mirrorLatency,
		c.mirrorDropped,
		c.mirrorDeadLettered,
		c.mirrorQueueDepth,
		c.logins,
	)

	return c
}

func (c *Collector) RecordListingMutation(op, outcome string) {
	c.listingMutations.WithLabelValues(op, outcome).Inc()
}

func (c *Collector) RecordMirrorDelivery(event, outcome string, duration time.Duration) {
	c.mirrorDeliveries.WithLabelValues(event, outcome).Inc()
	c.mirrorLatency.Observe(duration.Seconds())
}

func (c *Collector) RecordMirrorDropped(event string) {
	c.mirrorDropped.WithLabelValues(event).Inc()
}

func (c *Collector) RecordMirrorDeadLettered(event string) {
	c.mirrorDeadLettered.WithLabelValues(event).Inc()
}

func (c *Collector) SetMirrorQueueDepth(depth int) {
	c.mirrorQueueDepth.Set(float64(depth))
}

func (c *Collector) RecordLogin(outcome string) {
	c.logins.WithLabelValues(outcome).Inc()
}

// Nop discards everything. Used where no registry is wired, mostly in tests.
type Nop struct{}

func (Nop) RecordListingMutation(string, string)               {}
func (Nop) RecordMirrorDelivery(string, string, time.Duration) {}
func (Nop) RecordMirrorDropped(string)                         {}
func (Nop) RecordMirrorDeadLettered(string)                    {}
func (Nop) SetMirrorQueueDepth(int)                            {}
func (Nop) RecordLogin(string)                                 {}

// Handler serves the Prometheus scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
