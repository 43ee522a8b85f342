package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-wide HTTP metrics.
type Metrics struct {
	RequestDuration     *prometheus.HistogramVec
	RateLimitRejections *prometheus.CounterVec
	EventsDropped       prometheus.Counter
}

// New creates and registers the HTTP metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "readykids_http_request_duration_seconds",
			Help:    "HTTP request latency by route, method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		RateLimitRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "readykids_rate_limit_rejections_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"route"}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "readykids_lifecycle_events_dropped_total",
			Help: "Lifecycle events dropped because the publish buffer was full",
		}),
	}
}

func (m *Metrics) ObserveRequest(route, method, status string, start time.Time) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, method, status).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementRateLimitRejections(route string) {
	if m == nil {
		return
	}
	m.RateLimitRejections.WithLabelValues(route).Inc()
}

func (m *Metrics) IncrementEventsDropped() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}
