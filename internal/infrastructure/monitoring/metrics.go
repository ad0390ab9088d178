package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "applaunchd"

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Launcher metrics
	StartRequests   *prometheus.CounterVec
	LifecycleEvents *prometheus.CounterVec
	AppsRegistered  prometheus.Gauge
	AppsRunning     prometheus.Gauge

	// Broadcast metrics
	Subscribers        prometheus.Gauge
	SubscribersDropped *prometheus.CounterVec

	// Supervisor metrics
	SupervisorCalls    *prometheus.CounterVec
	SupervisorDuration *prometheus.HistogramVec

	// gRPC metrics
	GRPCCalls    *prometheus.CounterVec
	GRPCDuration *prometheus.HistogramVec

	// D-Bus metrics
	BusCalls *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge

	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON health output
type Snapshot struct {
	TotalRequests  int64
	TotalErrors    int64
	StartsAccepted int64
	StartsFailed   int64
	RunningApps    int64
}

// NewMetrics creates a metrics collector backed by its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		StartRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "start_requests_total",
				Help:      "Start requests by result",
			},
			[]string{"result"},
		),
		LifecycleEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lifecycle_events_total",
				Help:      "Lifecycle events emitted by kind",
			},
			[]string{"kind"},
		),
		AppsRegistered: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "apps_registered",
				Help:      "Number of applications in the registry",
			},
		),
		AppsRunning: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "apps_running",
				Help:      "Number of applications currently starting or running",
			},
		),

		Subscribers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "subscribers",
				Help:      "Number of live status subscribers",
			},
		),
		SubscribersDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscribers_dropped_total",
				Help:      "Subscribers removed by reason",
			},
			[]string{"reason"},
		),

		SupervisorCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "supervisor_calls_total",
				Help:      "Calls to the unit supervisor",
			},
			[]string{"method", "status"},
		),
		SupervisorDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "supervisor_call_duration_seconds",
				Help:      "Unit supervisor call duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method"},
		),

		GRPCCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "grpc_calls_total",
				Help:      "Total number of gRPC calls",
			},
			[]string{"method", "code"},
		),
		GRPCDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "grpc_duration_seconds",
				Help:      "gRPC call duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 30, 300},
			},
			[]string{"method"},
		),

		BusCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dbus_calls_total",
				Help:      "Total number of D-Bus method calls",
			},
			[]string{"method", "status"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_connections",
				Help:      "Number of active WebSocket connections",
			},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Daemon uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry exposes the underlying registry for custom collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordStart records the outcome of a start request
func (m *Metrics) RecordStart(result string) {
	m.StartRequests.WithLabelValues(result).Inc()

	m.mu.Lock()
	switch result {
	case "accepted":
		m.snapshot.StartsAccepted++
	case "failed":
		m.snapshot.StartsFailed++
	}
	m.mu.Unlock()
}

// RecordLifecycleEvent counts an emitted lifecycle event
func (m *Metrics) RecordLifecycleEvent(kind string) {
	m.LifecycleEvents.WithLabelValues(kind).Inc()
}

// SetAppsRegistered sets the number of registered applications
func (m *Metrics) SetAppsRegistered(count int) {
	m.AppsRegistered.Set(float64(count))
}

// SetAppsRunning sets the number of starting or running applications
func (m *Metrics) SetAppsRunning(count int) {
	m.AppsRunning.Set(float64(count))
	m.mu.Lock()
	m.snapshot.RunningApps = int64(count)
	m.mu.Unlock()
}

// SetSubscribers sets the live subscriber count
func (m *Metrics) SetSubscribers(count int) {
	m.Subscribers.Set(float64(count))
}

// RecordSubscriberDropped counts a subscriber removed for the given reason
func (m *Metrics) RecordSubscriberDropped(reason string) {
	m.SubscribersDropped.WithLabelValues(reason).Inc()
}

// RecordSupervisorCall records a unit supervisor call
func (m *Metrics) RecordSupervisorCall(method, status string, duration time.Duration) {
	m.SupervisorCalls.WithLabelValues(method, status).Inc()
	m.SupervisorDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordGRPCCall records a gRPC call
func (m *Metrics) RecordGRPCCall(method, code string, duration time.Duration) {
	m.GRPCCalls.WithLabelValues(method, code).Inc()
	m.GRPCDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordBusCall records a D-Bus method call
func (m *Metrics) RecordBusCall(method, status string) {
	m.BusCalls.WithLabelValues(method, status).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}

// Snapshot returns current values for health output
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// Uptime returns the time since the collector was created
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}
