// Package middleware provides production observability for spool renders.
//
// This package includes:
//   - OpenTelemetry tracing of every render
//   - Prometheus metrics for renders and the live server
//   - chi middleware counting live server requests
//
// Both observers implement render.Observer and can be combined:
//
//	metrics := middleware.Prometheus()
//	tracing := middleware.OpenTelemetry(middleware.WithTracerName("docs"))
//	renderer := render.NewRenderer(render.RendererConfig{
//	    Name:     "page",
//	    Observer: render.Observers{tracing, metrics},
//	})
//
// # OpenTelemetry
//
// A span is started when a render starts and ended when it completes. The
// span context is carried by the render context, so deferred values and
// effect handlers that make outgoing calls inherit the trace:
//
//	content.Defer(func(ctx context.Context) (any, error) {
//	    row := db.QueryRowContext(ctx, "SELECT ...")
//	    ...
//	})
//
// # Prometheus Metrics
//
// Render metrics include totals by status, duration and output size
// histograms, and counters of fragments, deferred values, effects and unique
// identifiers. Expose them with promhttp:
//
//	http.Handle("/metrics", promhttp.Handler())
package middleware
