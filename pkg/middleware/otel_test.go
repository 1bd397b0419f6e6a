package middleware

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/spool/pkg/content"
	"github.com/vango-dev/spool/pkg/render"
)

func newRecorder() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	return sr, tp
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestOpenTelemetry_TracesRender(t *testing.T) {
	sr, tp := newRecorder()
	tracing := OpenTelemetry(
		WithTracerProvider(tp),
		WithAttributeExtractor(func(context.Context, render.Report) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", "ok")}
		}),
	)

	var sawSpan bool
	deferred := content.Defer(func(ctx context.Context) (any, error) {
		sawSpan = trace.SpanContextFromContext(ctx).IsValid()
		return "x", nil
	})

	r := render.NewRenderer(render.RendererConfig{Name: "home", Observer: tracing})
	if _, err := r.RenderToString(context.Background(), content.Seq("a", deferred)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "spool.render home" {
		t.Errorf("span name = %q", span.Name())
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", span.Status().Code)
	}
	if v, ok := spanAttr(span, "spool.render.deferred"); !ok || v.AsInt64() != 1 {
		t.Errorf("spool.render.deferred = %v, %v", v.AsInt64(), ok)
	}
	if v, ok := spanAttr(span, "test.attr"); !ok || v.AsString() != "ok" {
		t.Errorf("test.attr = %q, %v", v.AsString(), ok)
	}
	if !sawSpan {
		t.Error("deferred value did not receive the span context")
	}
}

func TestOpenTelemetry_RecordsError(t *testing.T) {
	sr, tp := newRecorder()
	r := render.NewRenderer(render.RendererConfig{Observer: OpenTelemetry(WithTracerProvider(tp))})

	cause := errors.New("no data")
	if _, err := r.RenderToString(context.Background(), content.Reject(cause)); err == nil {
		t.Fatal("expected error")
	}

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status().Code)
	}
	if len(spans[0].Events()) == 0 {
		t.Error("expected the error to be recorded as a span event")
	}
}

func TestOpenTelemetry_Filter(t *testing.T) {
	sr, tp := newRecorder()
	tracing := OpenTelemetry(
		WithTracerProvider(tp),
		WithIncludeStats(false),
		WithRenderFilter(func(name string) bool { return name != "healthz" }),
	)

	for _, name := range []string{"healthz", "page"} {
		r := render.NewRenderer(render.RendererConfig{Name: name, Observer: tracing})
		if _, err := r.RenderToString(context.Background(), "ok"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	spans := sr.Ended()
	if len(spans) != 1 || spans[0].Name() != "spool.render page" {
		t.Fatalf("expected only the page render to be traced, got %d spans", len(spans))
	}
	if _, ok := spanAttr(spans[0], "spool.render.fragments"); ok {
		t.Error("stats recorded with IncludeStats disabled")
	}
}

func TestDefaultOTelConfig(t *testing.T) {
	config := defaultOTelConfig()
	if config.TracerName != "spool" {
		t.Errorf("TracerName = %q, want spool", config.TracerName)
	}
	if !config.IncludeStats {
		t.Error("IncludeStats should default to true")
	}
}
