// Package metrics exposes the Prometheus instrumentation surface for a
// landkeep server: HTTP/websocket metrics alongside land-lifecycle
// metrics — joins/leaves, active lands, sync latency, and wire-encode
// sizes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector a landkeep server registers.
type Metrics struct {
	httpRequestCount    *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	connections      prometheus.Gauge
	connectionEvents *prometheus.CounterVec

	joins  *prometheus.CounterVec
	leaves *prometheus.CounterVec

	activeLands  *prometheus.GaugeVec
	activeSlots  prometheus.Gauge
	syncDuration *prometheus.HistogramVec
	encodeBytes  *prometheus.HistogramVec

	actions *prometheus.CounterVec
	events  *prometheus.CounterVec

	healthChecks    *prometheus.CounterVec
	serverStartTime prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers every collector with a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		httpRequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "landkeep_http_requests_total",
				Help: "Total HTTP requests processed by method, endpoint and status",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "landkeep_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "landkeep_connections_active",
			Help: "Number of live transport connections across all lands",
		}),
		connectionEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "landkeep_connection_events_total",
				Help: "Total connection lifecycle events by kind",
			},
			[]string{"kind"}, // connected, disconnected, kicked, failed
		),
		joins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "landkeep_joins_total",
				Help: "Total successful and denied join attempts by land type and outcome",
			},
			[]string{"land_type", "outcome"}, // success, rate_limited, unknown_land_type, instance_not_found, instance_required, or a join-denial reason
		),
		leaves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "landkeep_leaves_total",
				Help: "Total player departures by land type and reason",
			},
			[]string{"land_type", "reason"}, // disconnect or kicked
		),
		activeLands: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "landkeep_lands_active",
				Help: "Number of live land instances by land type",
			},
			[]string{"land_type"},
		),
		activeSlots: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "landkeep_player_slots_active",
			Help: "Number of occupied player slots across all lands",
		}),
		syncDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "landkeep_sync_duration_seconds",
				Help:    "Time spent computing and encoding a sync pass",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"land_type"},
		),
		encodeBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "landkeep_encode_bytes",
				Help:    "Encoded StateUpdate size in bytes by wire format",
				Buckets: prometheus.ExponentialBuckets(64, 4, 8),
			},
			[]string{"format"},
		),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "landkeep_actions_total",
				Help: "Total player actions by type identifier and outcome",
			},
			[]string{"type_identifier", "status"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "landkeep_events_total",
				Help: "Total client events by type or opcode",
			},
			[]string{"kind"},
		),
		healthChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "landkeep_health_checks_total",
				Help: "Total health check evaluations by status",
			},
			[]string{"status"},
		),
		serverStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "landkeep_server_start_time_seconds",
			Help: "Unix timestamp when the server started",
		}),
		registry: registry,
	}

	m.registry.MustRegister(
		m.httpRequestCount,
		m.httpRequestDuration,
		m.connections,
		m.connectionEvents,
		m.joins,
		m.leaves,
		m.activeLands,
		m.activeSlots,
		m.syncDuration,
		m.encodeBytes,
		m.actions,
		m.events,
		m.healthChecks,
		m.serverStartTime,
	)
	m.serverStartTime.SetToCurrentTime()
	return m
}

// Handler returns the HTTP handler to mount at GET /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry, EnableOpenMetrics: true})
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestCount.WithLabelValues(method, endpoint, statusCodeLabel(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordConnectionEvent records a connection lifecycle transition and keeps
// the live-connection gauge consistent with it.
func (m *Metrics) RecordConnectionEvent(kind string) {
	m.connectionEvents.WithLabelValues(kind).Inc()
	switch kind {
	case "connected":
		m.connections.Inc()
	case "disconnected", "kicked", "failed":
		m.connections.Dec()
	}
}

// RecordJoin records a join attempt outcome for a land type.
func (m *Metrics) RecordJoin(landType, outcome string) {
	m.joins.WithLabelValues(landType, outcome).Inc()
}

// RecordLeave records a player departure reason for a land type.
func (m *Metrics) RecordLeave(landType, reason string) {
	m.leaves.WithLabelValues(landType, reason).Inc()
}

// SetActiveLands sets the live-instance gauge for a land type.
func (m *Metrics) SetActiveLands(landType string, count int) {
	m.activeLands.WithLabelValues(landType).Set(float64(count))
}

// SetActiveSlots sets the total occupied player-slot gauge.
func (m *Metrics) SetActiveSlots(count int) {
	m.activeSlots.Set(float64(count))
}

// ObserveSyncDuration records one sync pass's wall-clock cost.
func (m *Metrics) ObserveSyncDuration(landType string, d time.Duration) {
	m.syncDuration.WithLabelValues(landType).Observe(d.Seconds())
}

// ObserveEncodeBytes records one StateUpdate's encoded size.
func (m *Metrics) ObserveEncodeBytes(format string, size int) {
	m.encodeBytes.WithLabelValues(format).Observe(float64(size))
}

// RecordAction records one dispatched action's outcome.
func (m *Metrics) RecordAction(typeIdentifier, status string) {
	m.actions.WithLabelValues(typeIdentifier, status).Inc()
}

// RecordEvent records one dispatched client event.
func (m *Metrics) RecordEvent(kind string) {
	m.events.WithLabelValues(kind).Inc()
}

// RecordHealthCheck records a health check evaluation's status.
func (m *Metrics) RecordHealthCheck(status string) {
	m.healthChecks.WithLabelValues(status).Inc()
}

func statusCodeLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
