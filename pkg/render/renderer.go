package render

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/spool/pkg/content"
	"github.com/vango-dev/spool/pkg/ids"
)

// RendererConfig configures the renderer.
type RendererConfig struct {
	// IDs supplies identifiers for unique requests.
	// Defaults to the process-wide ids.Default source.
	IDs ids.Source

	// Handler interprets effects yielded by producers.
	// Defaults to ignoring every effect.
	Handler content.EffectHandler

	// Logger receives debug events. Defaults to slog.Default().
	Logger *slog.Logger

	// Observer is notified of every render, for metrics and tracing.
	Observer Observer

	// Name labels renders in observer reports. Defaults to "render".
	Name string
}

// Renderer renders content trees to strings.
// A Renderer is safe for concurrent use.
type Renderer struct {
	config    RendererConfig
	flattener *Flattener
}

// NewRenderer creates a new Renderer with the given configuration.
func NewRenderer(config RendererConfig) *Renderer {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Observer == nil {
		config.Observer = nopObserver{}
	}
	if config.Name == "" {
		config.Name = "render"
	}
	return &Renderer{
		config:    config,
		flattener: newFlattener(config.IDs, config.Handler, config.Logger),
	}
}

// Render renders root with the default id source and the given handler,
// which may be nil.
func Render(ctx context.Context, root any, handler content.EffectHandler) (string, error) {
	return NewRenderer(RendererConfig{Handler: handler}).RenderToString(ctx, root)
}

// RenderToString renders root to a string.
//
// Every fragment is enumerated first, which starts every deferred value;
// the fragments are then awaited concurrently and joined in emission order.
// On failure the error is a *RenderError and no output is returned.
func (r *Renderer) RenderToString(ctx context.Context, root any) (string, error) {
	start := time.Now()
	ctx = r.config.Observer.RenderStart(ctx, r.config.Name)

	out, stats, err := r.render(ctx, root)

	r.config.Observer.RenderEnd(ctx, Report{
		Name:     r.config.Name,
		Stats:    stats,
		Bytes:    len(out),
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		r.config.Logger.Debug("render failed", "name", r.config.Name, "error", err)
		return "", err
	}
	return out, nil
}

// RenderToWriter renders root and writes the output to w.
// Nothing is written if the render fails.
func (r *Renderer) RenderToWriter(ctx context.Context, w io.Writer, root any) error {
	out, err := r.RenderToString(ctx, root)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, out); err != nil {
		return failed("write", err)
	}
	return nil
}

// Flattener returns the flattener used by the renderer.
func (r *Renderer) Flattener() *Flattener {
	return r.flattener
}

func (r *Renderer) render(ctx context.Context, root any) (string, Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := &counters{}
	frags, err := r.enumerate(ctx, root, c)
	if err != nil {
		return "", c.snapshot(), failed("flatten", err)
	}

	texts := make([]string, len(frags))
	g, gctx := errgroup.WithContext(ctx)
	for i, frag := range frags {
		if !frag.Pending() {
			texts[i] = frag.text
			continue
		}
		g.Go(func() error {
			s, err := frag.Resolve(gctx)
			if err != nil {
				return err
			}
			texts[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", c.snapshot(), failed("resolve", err)
	}

	return strings.Join(texts, ""), c.snapshot(), nil
}

// enumerate drains the flattener, starting every deferred fragment.
func (r *Renderer) enumerate(ctx context.Context, root any, c *counters) ([]Fragment, error) {
	var frags []Fragment
	for frag, err := range r.flattener.flatten(ctx, root, c) {
		if err != nil {
			return nil, err
		}
		frags = append(frags, frag)
	}
	return frags, nil
}
