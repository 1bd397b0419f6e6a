package render

import (
	"context"
	"time"
)

// Observer is notified at the start and end of every render.
// pkg/middleware provides Prometheus and OpenTelemetry observers.
type Observer interface {
	// RenderStart is called before the content tree is walked. The returned
	// context is used for the rest of the render.
	RenderStart(ctx context.Context, name string) context.Context

	// RenderEnd is called once the render has finished or failed.
	RenderEnd(ctx context.Context, report Report)
}

// Report describes a finished render.
type Report struct {
	Name     string
	Stats    Stats
	Bytes    int
	Duration time.Duration
	Err      error
}

// Observers fans out to several observers in order.
type Observers []Observer

// RenderStart implements Observer.
func (o Observers) RenderStart(ctx context.Context, name string) context.Context {
	for _, obs := range o {
		ctx = obs.RenderStart(ctx, name)
	}
	return ctx
}

// RenderEnd implements Observer.
func (o Observers) RenderEnd(ctx context.Context, report Report) {
	for i := len(o) - 1; i >= 0; i-- {
		o[i].RenderEnd(ctx, report)
	}
}

type nopObserver struct{}

func (nopObserver) RenderStart(ctx context.Context, _ string) context.Context { return ctx }
func (nopObserver) RenderEnd(context.Context, Report)                          {}
