package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveOperation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveOperation("create", "ok", time.Now())
	m.ObserveOperation("create", "ok", time.Now())
	m.ObserveOperation("get", "MEMORY_NOT_FOUND", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("get", "MEMORY_NOT_FOUND")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("create", "ok", time.Now())
		m.ObserveTool("search_memory", "ok")
		m.ObserveHTTP("GET", "/health", "200")
		m.SetStoreStats(true, 3)
	})
}

func TestDefaultRegistersOnce(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestSetStoreStats(t *testing.T) {
	m := New(nil)

	m.SetStoreStats(true, 7)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatabaseUp))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.Entries))

	// 数据库不可用时保留上一次的条目数
	m.SetStoreStats(false, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.DatabaseUp))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.Entries))
}
