package services

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type watcherMetrics struct {
	ticksTotal          prometheus.Counter
	claimsTotal         prometheus.Counter
	claimConflictsTotal prometheus.Counter
	failuresTotal       prometheus.Counter
}

var watcherMetricsSingleton = sync.OnceValue(func() *watcherMetrics {
	return &watcherMetrics{
		ticksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "docflow",
			Subsystem: "watcher",
			Name:      "ticks_total",
			Help:      "Total number of watcher poll ticks.",
		}),
		claimsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "docflow",
			Subsystem: "watcher",
			Name:      "claims_total",
			Help:      "Total number of change records claimed with a document id.",
		}),
		claimConflictsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "docflow",
			Subsystem: "watcher",
			Name:      "claim_conflicts_total",
			Help:      "Total number of claims lost to a concurrent watcher.",
		}),
		failuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "docflow",
			Subsystem: "watcher",
			Name:      "failures_total",
			Help:      "Total number of ticks that failed while processing a record.",
		}),
	}
})

func getWatcherMetrics() *watcherMetrics {
	return watcherMetricsSingleton()
}
