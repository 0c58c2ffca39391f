// Package metrics defines the Prometheus instrumentation for the hub.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hub metrics
var (
	// HubConnectedClients tracks the number of currently registered connections
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Number of currently registered connections",
		},
	)

	// HubConnectionsTotal tracks connection registrations by outcome
	HubConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_connections_total",
			Help: "Connection registration attempts by outcome",
		},
		[]string{"outcome"},
	)

	// HubBroadcastsTotal tracks total accepted broadcasts
	HubBroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_broadcasts_total",
			Help: "Total messages accepted for broadcast",
		},
	)

	// HubFramesDeliveredTotal tracks frames enqueued to recipient queues
	HubFramesDeliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_frames_delivered_total",
			Help: "Frames enqueued to recipient delivery queues",
		},
	)

	// HubFramesDroppedTotal tracks per-recipient delivery failures
	HubFramesDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_frames_dropped_total",
			Help: "Frames dropped because a recipient delivery queue was full",
		},
	)

	// HubSlowClientsEvicted tracks clients evicted for not draining their queue
	HubSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "Clients evicted because their delivery queue was full",
		},
	)

	// HubBroadcastDuration tracks fan-out duration per broadcast
	HubBroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hub_broadcast_duration_seconds",
			Help:    "Broadcast fan-out duration in seconds",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
	)

	// HubCommandChannelDepth tracks the hub actor command channel depth
	HubCommandChannelDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_command_channel_depth",
			Help: "Current depth of the hub command channel",
		},
	)

	// HubDecodeErrorsTotal tracks rejected inbound messages by reason
	HubDecodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_decode_errors_total",
			Help: "Inbound messages rejected at decode time by reason",
		},
		[]string{"reason"},
	)

	// HubStopTimeoutsTotal tracks hub shutdowns that exceeded the stop timeout
	HubStopTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_stop_timeouts_total",
			Help: "Hub shutdowns that exceeded the graceful stop timeout",
		},
	)
)

// WebSocket transport metrics
var (
	// WebSocketMessageSendDuration tracks transport write latency
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "WebSocket message send duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	// WebSocketPingFailures tracks failed keepalive pings
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Failed WebSocket keepalive pings",
		},
	)

	// WebSocketIdleDisconnects tracks disconnects due to idle timeout
	WebSocketIdleDisconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_idle_disconnects_total",
			Help: "Connections closed after exceeding the idle timeout",
		},
	)

	// WebSocketRejectionsTotal tracks upgrade requests rejected before the hub
	WebSocketRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_rejections_total",
			Help: "WebSocket upgrade requests rejected at admission by reason",
		},
		[]string{"reason"},
	)
)
