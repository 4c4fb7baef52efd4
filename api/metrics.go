/*
metrics.go - Prometheus counters for the engine's decision points

PURPOSE:
  Operational visibility into the invariants this service protects:
  how often submissions collide, how often reconciliations race.
  Exposed at /metrics via promhttp.
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics aggregates the engine counters. One instance per process;
// counters register on the default registry.
type Metrics struct {
	IntervalsCreated    prometheus.Counter
	IntervalConflicts   prometheus.Counter
	IntervalsApproved   prometheus.Counter
	IntervalsRejected   prometheus.Counter
	PaymentsCreated     prometheus.Counter
	AllocationConflicts prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		IntervalsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worklog_intervals_created_total",
			Help: "Work intervals accepted for review.",
		}),
		IntervalConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worklog_interval_conflicts_total",
			Help: "Interval submissions refused by overlap detection.",
		}),
		IntervalsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worklog_intervals_approved_total",
			Help: "Reviewer approvals applied.",
		}),
		IntervalsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worklog_intervals_rejected_total",
			Help: "Reviewer rejections applied.",
		}),
		PaymentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worklog_payments_created_total",
			Help: "Payments created by reconciliation.",
		}),
		AllocationConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "worklog_allocation_conflicts_total",
			Help: "Payment creations refused because an interval was already paid.",
		}),
	}
}
