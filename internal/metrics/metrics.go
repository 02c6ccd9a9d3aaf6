package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HarvestCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_cycles_total",
		Help: "Completed harvest cycles by outcome.",
	}, []string{"outcome"})

	SourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_source_failures_total",
		Help: "Feed fetches that were skipped after an error.",
	}, []string{"category"})

	ItemsHarvested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "harvest_items_total",
		Help: "Items accumulated per category before filtering.",
	}, []string{"category"})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "harvest_cycle_duration_seconds",
		Help:    "Wall time of one full harvest cycle.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)
