package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricHeartbeatsAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "worktrace",
			Subsystem: "ingest",
			Name:      "heartbeats_accepted_total",
			Help:      "Heartbeats that produced a heartbeat row.",
		},
	)

	metricHeartbeatsThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "worktrace",
			Subsystem: "ingest",
			Name:      "heartbeats_throttled_total",
			Help:      "Heartbeats suppressed by the per-document rate limit.",
		},
	)

	metricHeartbeatsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "worktrace",
			Subsystem: "ingest",
			Name:      "heartbeats_rejected_total",
			Help:      "Heartbeats rejected before reaching storage (400/401/403).",
		},
	)
)
