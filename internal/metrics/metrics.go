// Package metrics holds the Prometheus collectors for the clinic server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts handled HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hospverse",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	// GuardDecisions counts route guard outcomes per module.
	GuardDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hospverse",
			Name:      "guard_decisions_total",
			Help:      "Route guard outcomes by module",
		},
		[]string{"module", "outcome"},
	)

	// LoginsTotal counts login attempts by kind (demo|password) and result.
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hospverse",
			Name:      "logins_total",
			Help:      "Login attempts",
		},
		[]string{"kind", "result"},
	)

	// QueueRefreshTicks counts queue auto-refresh fetches.
	QueueRefreshTicks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hospverse",
			Name:      "queue_refresh_ticks_total",
			Help:      "Queue auto-refresh fetches",
		},
		[]string{"status"},
	)

	// ActiveStreams tracks open queue SSE streams.
	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hospverse",
			Name:      "queue_streams_active",
			Help:      "Open queue refresh streams",
		},
	)
)
