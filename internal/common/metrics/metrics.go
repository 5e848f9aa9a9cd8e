// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ApplicationsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_applications_submitted_total",
			Help: "Total number of flat applications submitted",
		},
		[]string{"flat_type"},
	)

	ApplicationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_application_decisions_total",
			Help: "Total number of manager decisions on applications",
		},
		[]string{"outcome"},
	)

	FlatsBooked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_flats_booked_total",
			Help: "Total number of flats booked",
		},
		[]string{"flat_type"},
	)

	WithdrawalsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_withdrawals_resolved_total",
			Help: "Total number of withdrawal requests resolved",
		},
		[]string{"outcome"},
	)

	AssignmentDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_officer_assignment_decisions_total",
			Help: "Total number of officer assignment decisions",
		},
		[]string{"status"},
	)

	EnquiriesReplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "allocation_enquiries_replied_total",
			Help: "Total number of enquiries answered",
		},
	)

	DomainFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_domain_failures_total",
			Help: "Total number of operations rejected by a business rule",
		},
		[]string{"code"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "allocation_operation_duration_seconds",
			Help: "Duration of core operations in seconds",
		},
		[]string{"operation"},
	)
)
