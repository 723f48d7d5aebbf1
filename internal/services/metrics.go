package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bollette_rollover_sweeps_total",
		Help: "Number of rollover sweeps started.",
	})

	sweepFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bollette_rollover_sweep_failures_total",
		Help: "Number of sweeps aborted before processing any bill.",
	})

	billsRolledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bollette_rollover_bills_total",
		Help: "Per-bill rollover outcomes.",
	}, []string{"result"})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bollette_rollover_sweep_duration_seconds",
		Help:    "Wall-clock duration of one sweep.",
		Buckets: prometheus.DefBuckets,
	})
)
