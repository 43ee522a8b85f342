package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementCreated()
	m.IncrementCreated()
	m.IncrementDeleted()
	m.IncrementTimelineEvent("note")
	m.ObserveOperation("create", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ApplicationsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ApplicationsDeleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TimelineEvents.WithLabelValues("note")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementCreated()
		m.IncrementDeleted()
		m.IncrementTimelineEvent("action")
		m.ObserveOperation("list", time.Now())
	})
}
