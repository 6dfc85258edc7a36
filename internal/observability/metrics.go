package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	WebSocketConnectionsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of active WebSocket connections",
		},
		[]string{"service"},
	)

	HandshakeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_handshake_failures_total",
			Help: "Rejected websocket handshakes by reason",
		},
		[]string{"reason"},
	)

	BackpressureDisconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_backpressure_disconnects_total",
			Help: "Connections dropped because their outbound queue was full",
		},
	)

	MessagesAcceptedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "room_messages_accepted_total",
			Help: "Messages persisted and broadcast by the room broker",
		},
	)

	PersistenceFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "room_persistence_failures_total",
			Help: "Sends rejected because the history store did not persist them",
		},
	)

	FanoutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "room_fanout_duration_seconds",
			Help:    "Time spent enqueueing one event onto every subscriber of a room",
			Buckets: prometheus.DefBuckets,
		},
	)

	ActiveRoomWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "room_workers_active",
			Help: "Rooms with a live sequential worker",
		},
	)
)
