package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine metrics, exposed on /metrics via promhttp.
var (
	RevenueEventsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_engine_revenue_events_total",
		Help: "Revenue events recorded, by channel and review status.",
	}, []string{"channel", "review_status"})

	SettlementsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_engine_settlements_total",
		Help: "Settlement attempts, by outcome.",
	}, []string{"outcome"})

	SettleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_engine_settle_duration_seconds",
		Help:    "Duration of a single author-month settlement.",
		Buckets: prometheus.DefBuckets,
	})

	WithdrawalsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_engine_withdrawals_total",
		Help: "Withdrawal requests, by outcome.",
	}, []string{"outcome"})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_engine_sweep_duration_seconds",
		Help:    "Duration of the monthly settlement sweep.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_engine_notification_failures_total",
		Help: "Notification publishes that failed and were dropped.",
	})
)
