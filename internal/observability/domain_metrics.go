package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	synthesisRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queryloom_synthesis_requests_total",
			Help: "Total number of natural-language synthesis requests.",
		},
	)
	synthesisKindTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queryloom_synthesis_kind_total",
			Help: "Synthesis results by producing stage (window, subquery, join, template, generated, degraded).",
		},
		[]string{"kind"},
	)
	synthesisRepairedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queryloom_synthesis_repaired_total",
			Help: "Generated statements rewritten by schema repair.",
		},
	)
	executionBlockedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queryloom_execution_blocked_total",
			Help: "Statements rejected by the read-only safety gate.",
		},
	)
	executionFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "queryloom_execution_failures_total",
			Help: "Statements that passed the gate but failed in the store.",
		},
	)
	executionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "queryloom_execution_duration_seconds",
			Help:    "Store execution latency for gated statements.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		synthesisRequestsTotal,
		synthesisKindTotal,
		synthesisRepairedTotal,
		executionBlockedTotal,
		executionFailuresTotal,
		executionDurationSeconds,
	)
}

func ObserveSynthesis(kind string, repaired bool) {
	synthesisRequestsTotal.Inc()
	synthesisKindTotal.WithLabelValues(kind).Inc()
	if repaired {
		synthesisRepairedTotal.Inc()
	}
}

func ObserveExecution(elapsed time.Duration, failed bool) {
	executionDurationSeconds.Observe(elapsed.Seconds())
	if failed {
		executionFailuresTotal.Inc()
	}
}

func IncrementBlocked() {
	executionBlockedTotal.Inc()
}
