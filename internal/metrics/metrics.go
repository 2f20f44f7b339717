package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mahuti/tasks/backend/internal/grid"
)

const namespace = "mahuti"

// GridCollector 把排班会话的运行情况导出为 Prometheus 指标
type GridCollector struct {
	applied      *prometheus.CounterVec
	settled      *prometheus.CounterVec
	polls        *prometheus.CounterVec
	historyDepth prometheus.Gauge
}

var _ grid.Metrics = (*GridCollector)(nil)

// NewGridCollector 创建并注册指标，reg 为 nil 时使用默认的 Registerer
func NewGridCollector(reg prometheus.Registerer) *GridCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &GridCollector{
		applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grid",
			Name:      "operations_applied_total",
			Help:      "Operations applied to the local grid before server confirmation.",
		}, []string{"op"}),
		settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grid",
			Name:      "operations_settled_total",
			Help:      "Operations settled by the server, by outcome.",
		}, []string{"op", "status"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "grid",
			Name:      "polls_total",
			Help:      "Reconciliation polls by result (replaced, unchanged, error).",
		}, []string{"result"}),
		historyDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "grid",
			Name:      "history_depth",
			Help:      "Snapshots currently retained in the undo history.",
		}),
	}
	reg.MustRegister(c.applied, c.settled, c.polls, c.historyDepth)

	return c
}

func (c *GridCollector) OperationApplied(op grid.Op) {
	c.applied.WithLabelValues(string(op)).Inc()
}

func (c *GridCollector) OperationSettled(op grid.Op, status grid.Status) {
	c.settled.WithLabelValues(string(op), status.String()).Inc()
}

func (c *GridCollector) PollCompleted(replaced bool, err error) {
	switch {
	case err != nil:
		c.polls.WithLabelValues("error").Inc()
	case replaced:
		c.polls.WithLabelValues("replaced").Inc()
	default:
		c.polls.WithLabelValues("unchanged").Inc()
	}
}

func (c *GridCollector) HistoryDepth(n int) {
	c.historyDepth.Set(float64(n))
}

// HTTPCollector 统计 API 的请求数量和耗时
type HTTPCollector struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPCollector(reg prometheus.Registerer) *HTTPCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &HTTPCollector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(c.requests, c.duration)

	return c
}

// Observe 记录一次请求，route 使用路由模板而不是实际路径，避免标签数量失控
func (c *HTTPCollector) Observe(method, route string, status int, elapsed time.Duration) {
	if status == 0 {
		status = http.StatusOK
	}
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.duration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// InstrumentTransport 给客户端的 RoundTripper 加上请求数量和耗时指标
func InstrumentTransport(reg prometheus.Registerer, next http.RoundTripper) http.RoundTripper {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if next == nil {
		next = http.DefaultTransport
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Requests sent to the schedule API by method and status code.",
	}, []string{"method", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "client",
		Name:      "request_duration_seconds",
		Help:      "Latency of requests sent to the schedule API.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
	reg.MustRegister(requests, duration)

	return promhttp.InstrumentRoundTripperCounter(requests,
		promhttp.InstrumentRoundTripperDuration(duration, next))
}

// Handler 返回 reg 对应的 /metrics 处理函数
func Handler(reg prometheus.Gatherer) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
