package sweeper

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricEvictedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitycache_sweeper_evicted_total",
			Help: "Number of expired entries evicted by the sweeper",
		},
		[]string{"lmdb"},
	)
	metricLiveEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "entitycache_sweeper_live_entries",
			Help: "Live entries after last sweeper run",
		},
		[]string{"lmdb"},
	)
	metricDurationSummary = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "entitycache_sweeper_duration_seconds",
			Help: "Summary of time taken by sweeper",
		},
		[]string{"lmdb"},
	)
)

func init() {
	prometheus.MustRegister(metricEvictedTotal)
	prometheus.MustRegister(metricLiveEntries)
	prometheus.MustRegister(metricDurationSummary)
}
