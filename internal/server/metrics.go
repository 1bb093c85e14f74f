package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "make24_ws_connections",
		Help: "Open websocket connections",
	})

	wsMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "make24_ws_messages_total",
		Help: "Inbound websocket messages by type",
	}, []string{"type"})

	wsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "make24_ws_slow_clients_total",
		Help: "Connections closed because their send queue filled up",
	})

	rateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "make24_rate_limited_total",
		Help: "Requests rejected by a rate limiter",
	}, []string{"action"})

	timerUpdatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "make24_timer_updates_skipped_total",
		Help: "Heartbeat timer updates skipped because the room just got a full state",
	})

	staleSnapshotsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "make24_stale_snapshots_dropped_total",
		Help: "State broadcasts dropped because a newer snapshot already reached the room",
	})
)
