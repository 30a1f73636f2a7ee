package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricHeartbeatsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "worktrace",
			Subsystem: "collector",
			Name:      "heartbeats_sent_total",
			Help:      "Heartbeats posted to the ingestion service.",
		},
	)

	metricTicksIdle = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "worktrace",
			Subsystem: "collector",
			Name:      "ticks_idle_total",
			Help:      "Ticks skipped because the page was past the idle cutoff.",
		},
	)

	metricTicksRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "worktrace",
			Subsystem: "collector",
			Name:      "ticks_rate_limited_total",
			Help:      "Ticks skipped by the minimum send interval.",
		},
	)

	metricSendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "worktrace",
			Subsystem: "collector",
			Name:      "heartbeat_send_failures_total",
			Help:      "Heartbeat posts that returned an error.",
		},
	)
)
