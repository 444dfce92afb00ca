// Package metrics exposes Prometheus instrumentation for the realtime
// layer: connection gauges, fan-out counters and liveness terminations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveConnections tracks registered websocket connections.
	ActiveConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "taskchat_ws_connections",
		Help: "Current number of registered WebSocket connections",
	})

	// RejectedUpgrades counts refused upgrade attempts by reason:
	// "missing_token", "invalid_token", "no_user_id", "upgrade_failed".
	RejectedUpgrades = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskchat_ws_rejected_upgrades_total",
		Help: "WebSocket upgrade attempts refused at the gate",
	}, []string{"reason"})

	// ChatMessages counts inbound chat frames by message type and result:
	// "delivered", "invalid", "store_error".
	ChatMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskchat_chat_messages_total",
		Help: "Inbound chat frames processed by the router",
	}, []string{"message_type", "result"})

	// Deliveries counts per-connection enqueue attempts: "queued", "dropped".
	Deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskchat_ws_deliveries_total",
		Help: "Frames enqueued to or dropped for individual connections",
	}, []string{"result"})

	// Notifications counts published notifications by type and result:
	// "pushed", "offline", "error".
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskchat_notifications_total",
		Help: "Notifications published to users",
	}, []string{"type", "result"})

	// LivenessTerminations counts connections closed for missing a probe.
	LivenessTerminations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taskchat_ws_liveness_terminations_total",
		Help: "Connections terminated after an unanswered ping",
	})

	// RetentionDeleted counts notifications removed by the retention sweep.
	RetentionDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taskchat_retention_deleted_total",
		Help: "Notifications purged by the retention sweeper",
	})
)

func init() {
	prometheus.MustRegister(
		ActiveConnections,
		RejectedUpgrades,
		ChatMessages,
		Deliveries,
		Notifications,
		LivenessTerminations,
		RetentionDeleted,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
