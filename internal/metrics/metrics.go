// Package metrics exposes the dispatch API's Prometheus instrumentation.
// A single Collector owns a private registry so tests can construct as many
// collectors as they like without duplicate-registration panics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	TripsStarted       prometheus.Counter
	TripsCompleted     prometheus.Counter
	StopsAutoCompleted prometheus.Counter

	ConflictChecks *prometheus.CounterVec // outcome label: clear|conflicted

	ReconcileDuration prometheus.Histogram

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		TripsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_trips_started_total",
			Help: "Total trips moved from scheduled to on_going.",
		}),
		TripsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_trips_completed_total",
			Help: "Total trips moved from on_going to completed.",
		}),
		StopsAutoCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_stops_auto_completed_total",
			Help: "Total stop arrivals confirmed by the reconciliation loop.",
		}),
		ConflictChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_schedule_conflict_checks_total",
			Help: "Total schedule conflict checks by outcome.",
		}, []string{"outcome"}),
		ReconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatch_reconcile_duration_seconds",
			Help:    "Duration of trip reconciliation passes.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispatch_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		c.TripsStarted, c.TripsCompleted, c.StopsAutoCompleted,
		c.ConflictChecks, c.ReconcileDuration,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
	)

	return c
}

// Handler returns the /metrics HTTP handler for this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

// ---- engine.Metrics --------------------------------------------------------

func (c *Collector) ReconcileObserve(d time.Duration) { c.ReconcileDuration.Observe(d.Seconds()) }
func (c *Collector) StopAutoCompletedInc()            { c.StopsAutoCompleted.Inc() }

// ---- service.ExecMetrics ---------------------------------------------------

func (c *Collector) TripStartedInc()   { c.TripsStarted.Inc() }
func (c *Collector) TripCompletedInc() { c.TripsCompleted.Inc() }

// ---- service.ScheduleMetrics -----------------------------------------------

func (c *Collector) ConflictCheckInc(conflicted bool) {
	outcome := "clear"
	if conflicted {
		outcome = "conflicted"
	}
	c.ConflictChecks.WithLabelValues(outcome).Inc()
}

// ---- events.PublisherMetrics -----------------------------------------------

func (c *Collector) NATSPublishedInc()  { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }
func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}
