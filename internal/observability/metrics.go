package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "claudine_bridge"

// Request modes and outcomes used as label values.
const (
	ModeBuffered  = "buffered"
	ModeStreaming = "streaming"

	OutcomeOK            = "ok"
	OutcomeClientError   = "client_error"
	OutcomeUpstreamError = "upstream_error"
	OutcomeError         = "error"
	OutcomeCanceled      = "canceled"
)

// Metrics holds the bridge's Prometheus collectors on a private registry.
// All methods are safe on a nil receiver so callers can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	streamEvents   *prometheus.CounterVec
	upstreamErrors *prometheus.CounterVec
	droppedLines   prometheus.Counter
}

// NewMetrics creates and registers all collectors, including the Go runtime and
// process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Messages requests by mode and outcome.",
		}, []string{"mode", "outcome"}),
		streamEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stream_events_total",
			Help:      "Claude stream events written to clients by event type.",
		}, []string{"type"}),
		upstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "upstream_errors_total",
			Help:      "Non-success upstream responses passed through, by status code.",
		}, []string{"status"}),
		droppedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "stream_dropped_lines_total",
			Help:      "Upstream stream lines skipped because they were not valid JSON.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.streamEvents,
		m.upstreamErrors,
		m.droppedLines,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveRequest counts a finished request.
func (m *Metrics) ObserveRequest(mode, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(mode, outcome).Inc()
}

// ObserveStreamEvent counts one event written to a streaming client.
func (m *Metrics) ObserveStreamEvent(eventType string) {
	if m == nil {
		return
	}
	m.streamEvents.WithLabelValues(eventType).Inc()
}

// ObserveUpstreamError counts a passed-through upstream failure.
func (m *Metrics) ObserveUpstreamError(status int) {
	if m == nil {
		return
	}
	m.upstreamErrors.WithLabelValues(strconv.Itoa(status)).Inc()
}

// ObserveDroppedLines adds n skipped stream lines.
func (m *Metrics) ObserveDroppedLines(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.droppedLines.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
