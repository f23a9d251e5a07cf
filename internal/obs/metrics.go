package obs

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Allocation outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	AllocationOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_operations_total",
			Help: "Allocation workflow calls by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	Compensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_compensations_total",
			Help: "Compensating writes issued after a partial allocation, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	RestockPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "restock_tasks_pending",
		Help: "Restock tasks still waiting to be applied.",
	})

	RestockApplied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restock_tasks_processed_total",
			Help: "Restock task applications by result.",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// Init registers the collectors in the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(AllocationOps, Compensations, RestockPending, RestockApplied)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
