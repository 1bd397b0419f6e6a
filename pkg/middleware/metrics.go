package middleware

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/spool/pkg/content"
	"github.com/vango-dev/spool/pkg/html"
	"github.com/vango-dev/spool/pkg/render"
)

// MetricsConfig configures the Prometheus metrics observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "spool").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for render duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "spool",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics collects Prometheus metrics for renders and the live server.
// It implements render.Observer.
type Metrics struct {
	rendersTotal   *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	renderErrors   *prometheus.CounterVec
	renderBytes    prometheus.Histogram
	fragmentsTotal prometheus.Counter
	deferredTotal  prometheus.Counter
	effectsTotal   prometheus.Counter
	uniqueIDsTotal prometheus.Counter
	requestsTotal  *prometheus.CounterVec
	activeConns    prometheus.Gauge
	pushesTotal    prometheus.Counter
	wsErrors       *prometheus.CounterVec
	actionsTotal   *prometheus.CounterVec
}

var _ render.Observer = (*Metrics)(nil)

// Prometheus creates a Metrics observer and registers its collectors.
//
// Metrics collected:
//   - spool_renders_total: Counter of renders by name and status
//   - spool_render_duration_seconds: Histogram of render duration by name
//   - spool_render_errors_total: Counter of failed renders by name and error type
//   - spool_render_bytes: Histogram of output size
//   - spool_fragments_total, spool_deferred_total, spool_effects_total,
//     spool_unique_ids_total: Counters of what renders visited
//   - spool_http_requests_total: Counter of live server requests by route and code
//   - spool_active_connections: Gauge of open WebSocket connections
//   - spool_pushes_total: Counter of HTML pushes over WebSocket
//   - spool_websocket_errors_total: Counter of WebSocket errors by type
//   - spool_actions_total: Counter of applied actions by type and status
//
// Example:
//
//	metrics := middleware.Prometheus(middleware.WithNamespace("myapp"))
//	renderer := render.NewRenderer(render.RendererConfig{Observer: metrics})
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return initMetrics(config)
}

// initMetrics initializes the Prometheus metrics.
func initMetrics(config MetricsConfig) *Metrics {
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}

	return &Metrics{
		rendersTotal: counterVec("renders_total", "Total number of renders", "name", "status"),

		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_duration_seconds",
			Help:        "Render duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"name"}),

		renderErrors: counterVec("render_errors_total", "Total number of failed renders", "name", "error_type"),

		renderBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_bytes",
			Help:        "Size of rendered output in bytes",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{256, 1024, 10240, 102400, 1048576}, // 256B to 1MB
		}),

		fragmentsTotal: counter("fragments_total", "Total number of fragments emitted"),
		deferredTotal:  counter("deferred_total", "Total number of deferred values awaited"),
		effectsTotal:   counter("effects_total", "Total number of effects handled"),
		uniqueIDsTotal: counter("unique_ids_total", "Total number of unique identifiers injected"),

		requestsTotal: counterVec("http_requests_total", "Total live server requests", "route", "code"),

		activeConns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_connections",
			Help:        "Number of open WebSocket connections",
			ConstLabels: config.ConstLabels,
		}),

		pushesTotal:  counter("pushes_total", "Total number of HTML pushes to clients"),
		wsErrors:     counterVec("websocket_errors_total", "Total WebSocket errors by type", "type"),
		actionsTotal: counterVec("actions_total", "Total applied actions", "type", "status"),
	}
}

// RenderStart implements render.Observer.
func (m *Metrics) RenderStart(ctx context.Context, _ string) context.Context {
	return ctx
}

// RenderEnd implements render.Observer.
func (m *Metrics) RenderEnd(_ context.Context, report render.Report) {
	m.renderDuration.WithLabelValues(report.Name).Observe(report.Duration.Seconds())

	status := "success"
	if report.Err != nil {
		status = "error"
		m.renderErrors.WithLabelValues(report.Name, categorizeError(report.Err)).Inc()
	} else {
		m.renderBytes.Observe(float64(report.Bytes))
	}
	m.rendersTotal.WithLabelValues(report.Name, status).Inc()

	m.fragmentsTotal.Add(float64(report.Stats.Fragments))
	m.deferredTotal.Add(float64(report.Stats.Deferred))
	m.effectsTotal.Add(float64(report.Stats.Effects))
	m.uniqueIDsTotal.Add(float64(report.Stats.UniqueIDs))
}

// categorizeError returns a category for the error type.
// This prevents high-cardinality labels from error messages.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, content.ErrProducerPanic):
		return "panic"
	case errors.Is(err, content.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, html.ErrPlaceholderMismatch):
		return "template"
	default:
		return "internal"
	}
}

// =============================================================================
// Live Server Metrics
// =============================================================================

// HTTP returns chi middleware counting requests by route pattern and status.
func (m *Metrics) HTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
	})
}

// RecordConnect records a WebSocket connection being opened.
func (m *Metrics) RecordConnect() {
	m.activeConns.Inc()
}

// RecordDisconnect records a WebSocket connection being closed.
func (m *Metrics) RecordDisconnect() {
	m.activeConns.Dec()
}

// RecordPush records HTML pushed to n clients.
func (m *Metrics) RecordPush(n int) {
	m.pushesTotal.Add(float64(n))
}

// RecordWebSocketError records a WebSocket error.
func (m *Metrics) RecordWebSocketError(errorType string) {
	m.wsErrors.WithLabelValues(errorType).Inc()
}

// RecordAction records an applied action.
func (m *Metrics) RecordAction(actionType string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.actionsTotal.WithLabelValues(actionType, status).Inc()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack supports the WebSocket upgrade.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(w.ResponseWriter).Hijack()
}

// Flush supports streamed responses.
func (w *statusWriter) Flush() {
	_ = http.NewResponseController(w.ResponseWriter).Flush()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
