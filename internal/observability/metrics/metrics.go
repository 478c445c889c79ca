// Package metrics provides the Prometheus collectors shared across the
// dashboard backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Provider metrics track upstream API health.
var (
	// ProviderFetchTotal counts provider fetches by outcome: "success",
	// "error", "canceled" when the caller gave up first, or "open" when a
	// circuit breaker short-circuited the call.
	ProviderFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulseboard_provider_fetch_total",
			Help: "Total upstream provider fetches by outcome",
		},
		[]string{"provider", "outcome"},
	)

	// ProviderFetchDuration measures upstream fetch latency in seconds.
	ProviderFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulseboard_provider_fetch_duration_seconds",
			Help:    "Upstream provider fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
)

// Push metrics track the websocket push channel.
var (
	PushClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulseboard_push_clients",
			Help: "Number of connected push-channel clients",
		},
	)

	PushBroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulseboard_push_broadcasts_total",
			Help: "Total push events broadcast by event name",
		},
		[]string{"event"},
	)

	// PushDroppedTotal counts per-client deliveries dropped on a full buffer.
	PushDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulseboard_push_dropped_total",
			Help: "Total push deliveries dropped for slow clients",
		},
	)

	// PushRelayDroppedTotal counts bus messages discarded because the local
	// relay had not drained the previous ones.
	PushRelayDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulseboard_push_relay_dropped_total",
			Help: "Total bus messages dropped before reaching the local hub",
		},
		[]string{"channel"},
	)

	PushTicksSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulseboard_push_ticks_skipped_total",
			Help: "Scheduler ticks skipped because another replica held the tick lock",
		},
	)
)

// HTTP metrics.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulseboard_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulseboard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
