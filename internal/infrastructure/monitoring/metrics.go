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

const namespace = "shelld"

// Launch outcomes
const (
	OutcomeStarted   = "started"
	OutcomeResolved  = "resolved"
	OutcomeFailed    = "failed"
	OutcomeTimedOut  = "timed_out"
	OutcomeCancelled = "cancelled"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Application metrics
	AppsByState    *prometheus.GaugeVec
	WindowsTracked prometheus.Gauge
	LaunchesTotal  *prometheus.CounterVec
	LaunchDuration prometheus.Histogram

	// Spawner metrics
	SpawnCalls    *prometheus.CounterVec
	SpawnDuration *prometheus.HistogramVec

	// Registry metrics
	RegistryDescriptors prometheus.Gauge

	// WebSocket metrics
	WSConnections *prometheus.GaugeVec
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests  int64   `json:"total_requests"`
	TotalErrors    int64   `json:"total_errors"`
	RunningApps    int64   `json:"running_apps"`
	StartingApps   int64   `json:"starting_apps"`
	LaunchFailures int64   `json:"launch_failures"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// NewMetrics creates a metrics collector on its own registry
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

		// HTTP metrics
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
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_size_bytes",
				Help:      "HTTP request size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Application metrics
		AppsByState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "apps",
				Help:      "Number of tracked applications by state",
			},
			[]string{"state"},
		),
		WindowsTracked: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "windows_tracked",
				Help:      "Number of windows attributed to an application",
			},
		),
		LaunchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "launches_total",
				Help:      "Launch lifecycle events by outcome",
			},
			[]string{"outcome"},
		),
		LaunchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "launch_duration_seconds",
				Help:      "Time from spawn to first attributed window",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
			},
		),

		// Spawner metrics
		SpawnCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "spawn_calls_total",
				Help:      "Total number of process spawn calls",
			},
			[]string{"backend", "status"},
		),
		SpawnDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "spawn_duration_seconds",
				Help:      "Process spawn call duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"backend"},
		),

		// Registry metrics
		RegistryDescriptors: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "registry_descriptors",
				Help:      "Number of descriptors in the catalog",
			},
		),

		// WebSocket metrics
		WSConnections: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_connections",
				Help:      "Number of active WebSocket connections",
			},
			[]string{"channel"},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
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

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SetAppStates sets the per-state application gauges
func (m *Metrics) SetAppStates(stopped, starting, running int) {
	m.AppsByState.WithLabelValues("stopped").Set(float64(stopped))
	m.AppsByState.WithLabelValues("starting").Set(float64(starting))
	m.AppsByState.WithLabelValues("running").Set(float64(running))

	m.mu.Lock()
	m.snapshot.StartingApps = int64(starting)
	m.snapshot.RunningApps = int64(running)
	m.mu.Unlock()
}

// SetWindowsTracked sets the number of attributed windows
func (m *Metrics) SetWindowsTracked(count int) {
	m.WindowsTracked.Set(float64(count))
}

// RecordLaunch records a launch lifecycle event
func (m *Metrics) RecordLaunch(outcome string) {
	m.LaunchesTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeFailed || outcome == OutcomeTimedOut {
		m.mu.Lock()
		m.snapshot.LaunchFailures++
		m.mu.Unlock()
	}
}

// ObserveLaunchDuration records how long a launch took to produce a window
func (m *Metrics) ObserveLaunchDuration(d time.Duration) {
	m.LaunchDuration.Observe(d.Seconds())
}

// RecordSpawn records a spawn backend call
func (m *Metrics) RecordSpawn(backend, status string, duration time.Duration) {
	m.SpawnCalls.WithLabelValues(backend, status).Inc()
	m.SpawnDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// SetRegistryDescriptors sets the number of descriptors in the catalog
func (m *Metrics) SetRegistryDescriptors(count int) {
	m.RegistryDescriptors.Set(float64(count))
}

// IncWSConnections increments WebSocket connections on a channel
func (m *Metrics) IncWSConnections(channel string) {
	m.WSConnections.WithLabelValues(channel).Inc()
}

// DecWSConnections decrements WebSocket connections on a channel
func (m *Metrics) DecWSConnections(channel string) {
	m.WSConnections.WithLabelValues(channel).Dec()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// Snapshot returns the current summary values
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := m.snapshot
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	return snap
}
