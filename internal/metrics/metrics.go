package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "alert_cycle_duration_seconds",
			Help:    "Duration of alert evaluation cycles",
			Buckets: prometheus.DefBuckets,
		},
	)
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alert_cycles_total",
			Help: "Total number of evaluation cycles by outcome",
		},
		[]string{"outcome"},
	)
	DueUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "alert_due_users",
			Help: "Users selected for checking in the last cycle",
		},
	)
	AlertsTriggeredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_triggered_total",
			Help: "Total number of triggered alerts",
		},
		[]string{"direction"},
	)
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "push_notifications_total",
			Help: "Push notification hand-offs by result",
		},
		[]string{"result"},
	)
	PriceFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_fetches_total",
			Help: "Upstream price lookups by market and result",
		},
		[]string{"market", "result"},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"},
	)
	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)
)

func init() {
	prometheus.MustRegister(
		CycleDuration,
		CyclesTotal,
		DueUsers,
		AlertsTriggeredTotal,
		NotificationsTotal,
		PriceFetchesTotal,
		CacheHitsTotal,
		CacheMissesTotal,
	)
}
