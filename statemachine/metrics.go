package statemachine

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric definitions with appropriate labels.
var (
	// dispatchTotal tracks dispatched inputs by machine, source state and outcome.
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_dispatch_total",
		Help: "Total number of inputs dispatched by machine, state, and outcome",
	}, []string{"machine", "state", "outcome"})

	// dispatchDuration tracks how long handlers take to answer an input.
	dispatchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fsm_dispatch_duration_seconds",
		Help:    "Duration of a single dispatch by machine, state, and outcome",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
	}, []string{"machine", "state", "outcome"})

	// transitionsTotal tracks state changes.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_transitions_total",
		Help: "Total number of state transitions by machine, from_state, and to_state",
	}, []string{"machine", "from_state", "to_state"})

	// staysTotal tracks explicit holds.
	staysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_stays_total",
		Help: "Total number of explicit holds by machine and state",
	}, []string{"machine", "state"})

	// machinesCreatedTotal tracks successfully built machines.
	machinesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_machines_created_total",
		Help: "Total number of machines built by machine type",
	}, []string{"machine"})

	// constructionFailuresTotal tracks definitions rejected at construction.
	constructionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fsm_construction_failures_total",
		Help: "Total number of rejected machine constructions by machine type and reason",
	}, []string{"machine", "reason"})
)

func recordConstructionFailure(machine string, err error) {
	constructionFailuresTotal.WithLabelValues(sanitizeMachine(machine), failureReason(err)).Inc()
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownState):
		return "unknown_state"
	case errors.Is(err, ErrDuplicateBinding):
		return "duplicate_binding"
	case errors.Is(err, ErrEmptyDomain):
		return "empty_domain"
	case errors.Is(err, ErrNilHandler):
		return "nil_handler"
	default:
		return "other"
	}
}

func sanitizeMachine(machine string) string {
	if machine == "" {
		return "unnamed"
	}

	return machine
}
