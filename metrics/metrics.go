// Package metrics exports the reference and attachment activity of a jni.VM
// as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wippyai/jvm-bridge/jni"
)

// Collector turns VM events into metrics. Pass it to jni.New with
// jni.WithObserver; it is safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	liveLocals      prometheus.Gauge
	liveGlobals     prometheus.Gauge
	attachEvents    *prometheus.CounterVec
	thrown          prometheus.Counter
	releaseFailures prometheus.Counter
	collected       prometheus.Counter
}

// New creates a collector with its own registry. Metric names are prefixed
// with namespace.
func New(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		liveLocals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "local_references",
			Help:      "Local references currently held by open call scopes",
		}),
		liveGlobals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "global_references",
			Help:      "Global references currently alive",
		}),
		attachEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attach_events_total",
				Help:      "Thread attachment transitions by type",
			},
			[]string{"event"},
		),
		thrown: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exceptions_thrown_total",
			Help:      "Runtime exceptions taken by exception checks",
		}),
		releaseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "release_failures_total",
			Help:      "References that could not be deleted",
		}),
		collected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "globals_collected_total",
			Help:      "Global references released by the garbage collector instead of Release",
		}),
	}

	c.registry.MustRegister(
		c.liveLocals,
		c.liveGlobals,
		c.attachEvents,
		c.thrown,
		c.releaseFailures,
		c.collected,
	)
	return c
}

// OnEvent implements jni.Observer.
func (c *Collector) OnEvent(e jni.Event) {
	switch e.Type {
	case jni.EventAttach:
		c.attachEvents.WithLabelValues(e.Attach.String()).Inc()
	case jni.EventLocalCreated:
		c.liveLocals.Inc()
	case jni.EventLocalDeleted:
		c.liveLocals.Dec()
	case jni.EventGlobalCreated:
		c.liveGlobals.Inc()
	case jni.EventGlobalDeleted:
		c.liveGlobals.Dec()
	case jni.EventGlobalCollected:
		c.collected.Inc()
	case jni.EventThrown:
		c.thrown.Inc()
	case jni.EventReleaseFailed:
		c.releaseFailures.Inc()
	}
}

// Registry returns the registry the metrics live in, for adding process or
// Go collectors.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
