package middleware

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/spool/pkg/render"
)

// Default tracer name for spool renders.
const defaultTracerName = "spool"

// OTelConfig configures the OpenTelemetry observer.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "spool").
	TracerName string

	// TracerProvider supplies the tracer.
	// Default: the global provider from otel.GetTracerProvider.
	TracerProvider trace.TracerProvider

	// IncludeStats records the render statistics as span attributes.
	// Enabled by default.
	IncludeStats bool

	// Filter determines which renders to trace by name.
	// If nil, all renders are traced.
	Filter func(name string) bool

	// AttributeExtractor adds custom attributes when a render ends.
	AttributeExtractor func(ctx context.Context, report render.Report) []attribute.KeyValue
}

// OTelOption configures the OpenTelemetry observer.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithIncludeStats enables/disables render statistics on spans.
func WithIncludeStats(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeStats = include
	}
}

// WithRenderFilter sets a filter function for renders.
func WithRenderFilter(filter func(name string) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(ctx context.Context, report render.Report) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// defaultOTelConfig returns the default OpenTelemetry configuration.
func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName:   defaultTracerName,
		IncludeStats: true,
	}
}

// Tracing is a render.Observer that traces every render as a span.
type Tracing struct {
	config OTelConfig
	tracer trace.Tracer
}

var _ render.Observer = (*Tracing)(nil)

// OpenTelemetry creates an observer that traces renders.
//
// The observer:
//   - Starts a span named "spool.render <name>" when a render starts
//   - Passes the span context to deferred values and effect handlers
//   - Records errors and sets span status
//   - Records output size and render statistics as span attributes
//
// Example:
//
//	renderer := render.NewRenderer(render.RendererConfig{
//	    Observer: middleware.OpenTelemetry(middleware.WithTracerName("docs")),
//	})
//
// The tracer uses the global OpenTelemetry tracer provider unless one is
// given with WithTracerProvider. Configure it in your main():
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) *Tracing {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}
	return &Tracing{
		config: config,
		tracer: config.TracerProvider.Tracer(config.TracerName),
	}
}

// RenderStart implements render.Observer.
func (t *Tracing) RenderStart(ctx context.Context, name string) context.Context {
	if t.config.Filter != nil && !t.config.Filter(name) {
		return ctx
	}
	ctx, _ = t.tracer.Start(ctx, fmt.Sprintf("spool.render %s", name),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("spool.render.name", name)),
	)
	return ctx
}

// RenderEnd implements render.Observer.
func (t *Tracing) RenderEnd(ctx context.Context, report render.Report) {
	if t.config.Filter != nil && !t.config.Filter(report.Name) {
		return
	}
	span := trace.SpanFromContext(ctx)
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.Int("spool.render.bytes", report.Bytes),
	}
	if t.config.IncludeStats {
		attrs = append(attrs,
			attribute.Int64("spool.render.fragments", report.Stats.Fragments),
			attribute.Int64("spool.render.deferred", report.Stats.Deferred),
			attribute.Int64("spool.render.effects", report.Stats.Effects),
			attribute.Int64("spool.render.unique_ids", report.Stats.UniqueIDs),
		)
	}
	if t.config.AttributeExtractor != nil {
		attrs = append(attrs, t.config.AttributeExtractor(ctx, report)...)
	}
	span.SetAttributes(attrs...)

	if report.Err != nil {
		span.RecordError(report.Err)
		span.SetStatus(codes.Error, report.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

// SpanFromContext returns the render span carried by ctx, for use inside
// deferred values and effect handlers.
//
// Example:
//
//	content.Defer(func(ctx context.Context) (any, error) {
//	    middleware.SpanFromContext(ctx).AddEvent("loading user")
//	    return loadUser(ctx)
//	})
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}
