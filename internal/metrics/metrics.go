package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 排课服务的 Prometheus 指标
// 所有 Record 方法允许 nil 接收者，未启用指标时直接忽略
type Metrics struct {
	// 课次变更
	SessionMutationsTotal *prometheus.CounterVec
	ConflictsTotal        *prometheus.CounterVec

	// 周视图
	ProjectionDuration prometheus.Histogram

	// HTTP
	HTTPRequestsTotal *prometheus.CounterVec
}

// New 创建指标并注册到 registry
func New(registry *prometheus.Registry) *Metrics {
	return &Metrics{
		SessionMutationsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "planning_session_mutations_total",
				Help: "Session mutations by operation and result",
			},
			[]string{"op", "result"}, // op: create, move, remove, status; result: ok, conflict, invalid, error
		),

		ConflictsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "planning_conflicts_total",
				Help: "Placement rule violations detected, by rule",
			},
			[]string{"rule"},
		),

		ProjectionDuration: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "planning_projection_duration_seconds",
				Help:    "Time spent projecting one week grid",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),

		HTTPRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "planning_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
	}
}

// RecordSessionMutation 记录一次课次变更结果
func (m *Metrics) RecordSessionMutation(op, result string) {
	if m == nil {
		return
	}
	m.SessionMutationsTotal.WithLabelValues(op, result).Inc()
}

// RecordConflict 记录一条违反的规则
func (m *Metrics) RecordConflict(rule string) {
	if m == nil {
		return
	}
	m.ConflictsTotal.WithLabelValues(rule).Inc()
}

// RecordProjection 记录周视图计算耗时（秒）
func (m *Metrics) RecordProjection(seconds float64) {
	if m == nil {
		return
	}
	m.ProjectionDuration.Observe(seconds)
}

// RecordHTTPRequest 记录一次 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, route, status string) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
}
