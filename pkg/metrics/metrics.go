package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/mem"
)

// Metrics 指标管理器
type Metrics struct {
	gatherer prometheus.Gatherer

	// HTTP请求指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpResponseSize    *prometheus.HistogramVec

	// 告警链路指标
	alertsCreated       *prometheus.CounterVec
	notificationsTotal  *prometheus.CounterVec
	classifierFallbacks *prometheus.CounterVec
	pipelineDuration    *prometheus.HistogramVec
	pendingAlerts       prometheus.Gauge
	rateLimited         *prometheus.CounterVec

	// 系统指标
	systemMemoryUsage *prometheus.GaugeVec
	systemGoroutines  prometheus.Gauge
}

// NewMetrics registers every collector on reg. Pass prometheus.NewRegistry()
// in tests so repeated construction does not collide.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,

		httpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		httpResponseSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		alertsCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emergency_alerts_created_total",
				Help: "Emergency alerts persisted, by classified type",
			},
			[]string{"type"},
		),
		notificationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emergency_notifications_total",
				Help: "Outbound contact notifications, by channel and outcome",
			},
			[]string{"channel", "status"},
		),
		classifierFallbacks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "emergency_classifier_fallbacks_total",
				Help: "Alerts that used a fixed analysis text instead of the model output",
			},
			[]string{"reason"},
		),
		pipelineDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "emergency_pipeline_duration_seconds",
				Help:    "Duration of alert pipeline stages",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		pendingAlerts: f.NewGauge(prometheus.GaugeOpts{
			Name: "emergency_alerts_pending",
			Help: "Alerts currently in PENDING status",
		}),
		rateLimited: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_decisions_total",
				Help: "Rate limiter decisions by route",
			},
			[]string{"route", "decision"},
		),

		systemMemoryUsage: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "system_memory_usage_bytes",
				Help: "System memory usage in bytes",
			},
			[]string{"type"},
		),
		systemGoroutines: f.NewGauge(prometheus.GaugeOpts{
			Name: "system_goroutines",
			Help: "Number of goroutines",
		}),
	}
}

// RecordHTTPRequest 记录HTTP请求指标
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, responseSize int64) {
	m.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.httpResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

func (m *Metrics) RecordAlertCreated(emergencyType string) {
	m.alertsCreated.WithLabelValues(emergencyType).Inc()
}

// RecordNotification channel 为 sms / email，status 为 sent / failed
func (m *Metrics) RecordNotification(channel, status string) {
	m.notificationsTotal.WithLabelValues(channel, status).Inc()
}

func (m *Metrics) RecordClassifierFallback(reason string) {
	m.classifierFallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.pipelineDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) SetPendingAlerts(n int64) { m.pendingAlerts.Set(float64(n)) }

// OnAllow / OnDeny 供限流中间件上报，key 不进标签以免基数膨胀
func (m *Metrics) OnAllow(route, key string) { m.rateLimited.WithLabelValues(route, "allow").Inc() }

func (m *Metrics) OnDeny(route, key string) { m.rateLimited.WithLabelValues(route, "deny").Inc() }

// CollectSystem 采集内存与 goroutine 数
func (m *Metrics) CollectSystem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.systemMemoryUsage.WithLabelValues("heap_alloc").Set(float64(ms.HeapAlloc))
	m.systemMemoryUsage.WithLabelValues("sys").Set(float64(ms.Sys))
	if vm, err := mem.VirtualMemory(); err == nil {
		m.systemMemoryUsage.WithLabelValues("host_used").Set(float64(vm.Used))
		m.systemMemoryUsage.WithLabelValues("host_total").Set(float64(vm.Total))
	}
	m.systemGoroutines.Set(float64(runtime.NumGoroutine()))
}

// Handler 暴露 /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
