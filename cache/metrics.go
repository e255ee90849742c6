package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "entitycache_entries",
			Help: "Number of cached entries per namespace at the last stats refresh",
		},
		[]string{"namespace"},
	)
	metricPatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitycache_patches_total",
			Help: "Number of applied patches per kind and path",
		},
		[]string{"kind", "path"},
	)
	metricStoreErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "entitycache_store_errors_total",
			Help: "Number of failed store round trips",
		},
	)
	metricStatsDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "entitycache_stats_duration_seconds",
			Help:    "Time taken to count the cached entries",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)
)

func init() {
	prometheus.MustRegister(metricEntries)
	prometheus.MustRegister(metricPatches)
	prometheus.MustRegister(metricStoreErrors)
	prometheus.MustRegister(metricStatsDuration)
}
