// Package metrics exposes Prometheus instrumentation for drill runs.
// Collectors are registered at package load; the optional HTTP
// endpoint only changes whether anything scrapes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clusterdrill"

var (
	// ProbeAttempts counts topology probes by outcome
	// (converged, mismatch, error).
	ProbeAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stabilize",
			Name:      "probe_attempts_total",
			Help:      "Topology probe attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// ResetCycles counts flush cycles by outcome (ok, failed).
	ResetCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stabilize",
			Name:      "reset_cycles_total",
			Help:      "Cluster reset cycles by outcome.",
		},
		[]string{"outcome"},
	)

	// StabilizeDuration observes how long a full stabilization took.
	StabilizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stabilize",
			Name:      "duration_seconds",
			Help:      "Time from first probe to a stable pool.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// WorkloadOps counts workload operations by kind and outcome.
	WorkloadOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workload",
			Name:      "operations_total",
			Help:      "Workload operations by kind and outcome.",
		},
		[]string{"op", "outcome"},
	)

	// OpDuration observes per-operation latency by kind.
	OpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "workload",
			Name:      "operation_duration_seconds",
			Help:      "Workload operation latency by kind.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// FailoverAttempts counts failover broadcasts by outcome
	// (accepted, rejected).
	FailoverAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "drill",
			Name:      "failover_attempts_total",
			Help:      "Failover broadcasts by outcome.",
		},
		[]string{"outcome"},
	)

	// ScenarioResults counts drill scenarios by result.
	ScenarioResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "drill",
			Name:      "scenario_results_total",
			Help:      "Drill scenario completions by result.",
		},
		[]string{"scenario", "result"},
	)
)
