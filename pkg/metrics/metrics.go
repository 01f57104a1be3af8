// Package metrics 提供数据刷新管线的Prometheus指标
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 刷新管线指标集合
// 所有方法对nil接收者安全，未启用指标时可以直接传nil
type Metrics struct {
	fetchRequests  *prometheus.CounterVec
	fetchDuration  prometheus.Histogram
	updateCycles   *prometheus.CounterVec
	coalesced      prometheus.Counter
	streamMessages *prometheus.CounterVec
	streamUp       prometheus.Gauge
}

// New 创建并注册指标
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "godash_fetch_requests_total",
			Help: "Data requests issued, by HTTP status code (-1 for transport failures).",
		}, []string{"code"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "godash_fetch_duration_seconds",
			Help:    "Latency of a single data request.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		updateCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "godash_update_cycles_total",
			Help: "Update cycles by outcome (fetched, cached, failed).",
		}, []string{"outcome"}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "godash_update_requests_coalesced_total",
			Help: "Update requests folded into an in-flight update.",
		}),
		streamMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "godash_stream_messages_total",
			Help: "Streamed pushes by result (accepted, dropped, invalid).",
		}, []string{"result"}),
		streamUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "godash_stream_connected",
			Help: "1 while the push connection is open.",
		}),
	}

	reg.MustRegister(m.fetchRequests, m.fetchDuration, m.updateCycles, m.coalesced, m.streamMessages, m.streamUp)
	return m
}

// ObserveFetch 记录一次数据请求
func (m *Metrics) ObserveFetch(code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetchRequests.WithLabelValues(strconv.Itoa(code)).Inc()
	m.fetchDuration.Observe(elapsed.Seconds())
}

// IncUpdateCycle 记录一次更新周期
func (m *Metrics) IncUpdateCycle(outcome string) {
	if m == nil {
		return
	}
	m.updateCycles.WithLabelValues(outcome).Inc()
}

// IncCoalesced 记录一次被合并的更新请求
func (m *Metrics) IncCoalesced() {
	if m == nil {
		return
	}
	m.coalesced.Inc()
}

// IncStreamMessage 记录一次推送
func (m *Metrics) IncStreamMessage(result string) {
	if m == nil {
		return
	}
	m.streamMessages.WithLabelValues(result).Inc()
}

// SetStreamConnected 更新推送连接状态
func (m *Metrics) SetStreamConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.streamUp.Set(1)
	} else {
		m.streamUp.Set(0)
	}
}
