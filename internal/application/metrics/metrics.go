package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the application module.
type Metrics struct {
	ApplicationsCreated prometheus.Counter
	ApplicationsDeleted prometheus.Counter
	TimelineEvents      *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
}

// New registers the application metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ApplicationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "readykids_applications_created_total",
			Help: "Total number of applications submitted",
		}),
		ApplicationsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "readykids_applications_deleted_total",
			Help: "Total number of applications deleted",
		}),
		TimelineEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "readykids_timeline_events_total",
			Help: "Timeline events appended through the API, by type",
		}, []string{"type"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "readykids_application_operation_duration_seconds",
			Help:    "Duration of application service operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementCreated() {
	if m == nil {
		return
	}
	m.ApplicationsCreated.Inc()
}

func (m *Metrics) IncrementDeleted() {
	if m == nil {
		return
	}
	m.ApplicationsDeleted.Inc()
}

func (m *Metrics) IncrementTimelineEvent(eventType string) {
	if m == nil {
		return
	}
	m.TimelineEvents.WithLabelValues(eventType).Inc()
}

// ObserveOperation records how long op took. Call with time.Now() taken at
// the start of the operation.
func (m *Metrics) ObserveOperation(op string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
