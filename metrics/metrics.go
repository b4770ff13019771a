// Package metrics 定义服务的 Prometheus 指标。
package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "childsvc"

// Metrics 服务指标集合
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	EntityOutcomes  *prometheus.CounterVec
	PublishFailures *prometheus.CounterVec
}

// New 在独立 Registry 上注册全部指标（含 Go 运行时与进程指标）
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests being served",
			},
		),
		EntityOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entity_outcomes_total",
				Help:      "Total number of entity write outcomes",
			},
			[]string{"entity", "outcome"},
		),
		PublishFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outcome_publish_failures_total",
				Help:      "Total number of outcome notifications that failed to publish",
			},
			[]string{"entity"},
		),
	}
}

// Registry 返回底层 Registry
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler 暴露 /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest 记录一次 HTTP 请求
func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	route := Route(path)
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveOutcome 记录一次实体写操作结果
func (m *Metrics) ObserveOutcome(entity, outcome string) {
	m.EntityOutcomes.WithLabelValues(entity, outcome).Inc()
}

var numericSegment = regexp.MustCompile(`/-?[0-9]+(/|$)`)

// Route 将路径中的数字段折叠为 :id，控制标签基数
func Route(path string) string {
	for {
		next := numericSegment.ReplaceAllString(path, "/:id$1")
		if next == path {
			return path
		}
		path = next
	}
}
