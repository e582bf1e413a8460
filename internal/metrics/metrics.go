// Package metrics exposes Prometheus counters for the tracking engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Completions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_completions_total",
		Help: "Recorded task completions.",
	}, []string{"habit", "status"})

	CompletionRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_completion_rejections_total",
		Help: "Completion attempts refused, by reason.",
	}, []string{"reason"})

	PeriodsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_periods_finalized_total",
		Help: "Period results written, by status.",
	}, []string{"status"})

	DispatchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_dispatch_failures_total",
		Help: "Consequence dispatcher calls that returned an error.",
	}, []string{"event"})
)
