// Package metrics exposes the server's Prometheus instrumentation. All
// collectors live on a private registry so tests can construct isolated
// instances.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the server's collectors.
type Metrics struct {
	// ActiveSessions tracks currently open framed sessions.
	ActiveSessions prometheus.Gauge

	// EnqueuedEnvelopes counts envelopes accepted into destination queues.
	EnqueuedEnvelopes prometheus.Counter

	// DispatchedEnvelopes counts envelopes handed to a connected session.
	DispatchedEnvelopes prometheus.Counter

	// AckedEnvelopes counts envelopes deleted by client acknowledgement.
	AckedEnvelopes prometheus.Counter

	// DroppedNotifications counts subscription pushes dropped because the
	// channel was full. Sessions recover these via queue resync.
	DroppedNotifications prometheus.Counter

	// SweptLinkTokens counts used-token entries removed by the sweeper.
	SweptLinkTokens prometheus.Counter

	registry *prometheus.Registry
}

// New constructs a Metrics instance backed by a fresh registry that also
// carries the standard Go runtime and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sam",
			Name:      "active_sessions",
			Help:      "Number of currently open framed sessions.",
		}),
		EnqueuedEnvelopes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sam",
			Name:      "enqueued_envelopes_total",
			Help:      "Envelopes accepted into destination queues.",
		}),
		DispatchedEnvelopes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sam",
			Name:      "dispatched_envelopes_total",
			Help:      "Envelopes handed to a connected session.",
		}),
		AckedEnvelopes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sam",
			Name:      "acked_envelopes_total",
			Help:      "Envelopes deleted by client acknowledgement.",
		}),
		DroppedNotifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sam",
			Name:      "dropped_notifications_total",
			Help:      "Subscription pushes dropped due to a full channel.",
		}),
		SweptLinkTokens: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sam",
			Name:      "swept_link_tokens_total",
			Help:      "Used link-token entries removed by the sweeper.",
		}),
		registry: registry,
	}
}

// Handler returns the scrape endpoint handler for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
