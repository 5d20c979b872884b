package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Connection metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spark_ws_connections_active",
			Help: "Open websocket connections",
		},
	)

	UsersOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spark_ws_users_online",
			Help: "Distinct users with at least one authenticated connection",
		},
	)

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spark_ws_auth_attempts_total",
			Help: "Socket authentication attempts",
		},
		[]string{"result"}, // "ok" or "rejected"
	)

	// Fan-out metrics
	EventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spark_ws_events_dispatched_total",
			Help: "Broadcast requests handled by the dispatcher",
		},
		[]string{"event"},
	)

	Deliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spark_ws_deliveries_total",
			Help: "Frames queued to live connections",
		},
		[]string{"event"},
	)

	Drops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spark_ws_drops_total",
			Help: "Frames not delivered",
		},
		[]string{"reason"}, // "stale", "slow_client"
	)

	IngressEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spark_ws_ingress_events_total",
			Help: "Events received from domain services",
		},
		[]string{"source", "result"},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spark_ws_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)
