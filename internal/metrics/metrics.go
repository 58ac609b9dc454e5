// Package metrics exposes the client's Prometheus collectors. They are registered with
// the default registry; the CLI serves them with promhttp when metrics_addr is set.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "taskflow_client"

var (
	gatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Backend requests by operation and outcome (ok, api_error, transport_error, unauthenticated).",
		},
		[]string{"op", "outcome"},
	)
	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Backend request latency by operation.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	liveEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_events_total",
			Help:      "Live events received by wire type.",
		},
		[]string{"type"},
	)
	liveState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_connection_state",
			Help:      "0 disconnected, 1 connecting, 2 connected.",
		},
	)
	liveReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_reconnect_attempts_total",
			Help:      "Connection attempts after the first one of a run.",
		},
	)
	optimisticRollbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "optimistic_rollbacks_total",
			Help:      "Local changes undone after the backend refused them, by intent.",
		},
		[]string{"intent"},
	)
	staleSnapshots = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_snapshots_total",
			Help:      "Conversation snapshots discarded because the scope changed meanwhile.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		gatewayRequests,
		gatewayDuration,
		liveEvents,
		liveState,
		liveReconnects,
		optimisticRollbacks,
		staleSnapshots,
	)
}

func ObserveRequest(op, outcome string, elapsed time.Duration) {
	gatewayRequests.WithLabelValues(op, outcome).Inc()
	gatewayDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func IncEvent(eventType string) {
	liveEvents.WithLabelValues(eventType).Inc()
}

func SetConnectionState(state int) {
	liveState.Set(float64(state))
}

func IncReconnect() {
	liveReconnects.Inc()
}

func IncRollback(intent string) {
	optimisticRollbacks.WithLabelValues(intent).Inc()
}

func IncStaleSnapshot() {
	staleSnapshots.Inc()
}
