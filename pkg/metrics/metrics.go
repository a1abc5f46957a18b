// Package metrics prometheus 指标
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "memory_server"

// Metrics 记忆存储服务的 prometheus 指标集合
type Metrics struct {
	// Operations 存储操作计数，按操作和结果类型区分
	Operations *prometheus.CounterVec
	// OperationDuration 存储操作耗时
	OperationDuration *prometheus.HistogramVec
	// ToolCalls 工具调用计数
	ToolCalls *prometheus.CounterVec
	// HTTPRequests REST 请求计数
	HTTPRequests *prometheus.CounterVec
	// Entries 条目总数，由定时任务刷新
	Entries prometheus.Gauge
	// DatabaseUp 数据库是否可用 1/0
	DatabaseUp prometheus.Gauge
}

// New 创建并注册指标
// reg 为 nil 时使用独立的 Registry
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Number of entry store operations by operation and result kind.",
		}, []string{"operation", "result"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Latency of entry store operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"operation"}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Number of tool invocations by tool name and result kind.",
		}, []string{"tool", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of REST requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		Entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entries",
			Help:      "Number of stored memory entries at the last refresh.",
		}),
		DatabaseUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_up",
			Help:      "Whether the last database ping succeeded.",
		}),
	}
	reg.MustRegister(m.Operations, m.OperationDuration, m.ToolCalls, m.HTTPRequests, m.Entries, m.DatabaseUp)
	return m
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default 返回注册到 prometheus.DefaultRegisterer 的全局指标
// 配置热重载会多次创建服务，这里只注册一次
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// ObserveOperation 记录一次存储操作
// result 为 "ok" 或错误类型
func (m *Metrics) ObserveOperation(operation, result string, start time.Time) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, result).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveTool 记录一次工具调用
func (m *Metrics) ObserveTool(tool, result string) {
	if m == nil {
		return
	}
	m.ToolCalls.WithLabelValues(tool, result).Inc()
}

// ObserveHTTP 记录一次 REST 请求
func (m *Metrics) ObserveHTTP(method, route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
}

// SetStoreStats 刷新条目数和数据库状态
func (m *Metrics) SetStoreStats(up bool, entries int64) {
	if m == nil {
		return
	}
	if up {
		m.DatabaseUp.Set(1)
		m.Entries.Set(float64(entries))
		return
	}
	m.DatabaseUp.Set(0)
}
