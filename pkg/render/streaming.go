package render

import (
	"context"
	"io"
	"net/http"
	"time"
)

// StreamingRenderer wraps Renderer with incremental output.
//
// Fragments are written in emission order as soon as they and every
// fragment before them have resolved, and the writer is flushed after each
// pending fragment for faster time-to-first-byte. Unlike RenderToString,
// output written before a failure stays written.
type StreamingRenderer struct {
	*Renderer
	flusher http.Flusher
	w       io.Writer
}

// NewStreamingRenderer creates a streaming renderer that writes to w. If w
// implements http.Flusher, content is flushed after each resolved deferred
// fragment.
func NewStreamingRenderer(w io.Writer, config RendererConfig) *StreamingRenderer {
	flusher, _ := w.(http.Flusher)
	return &StreamingRenderer{
		Renderer: NewRenderer(config),
		flusher:  flusher,
		w:        w,
	}
}

// Render streams root to the underlying writer.
func (s *StreamingRenderer) Render(ctx context.Context, root any) error {
	start := time.Now()
	ctx = s.config.Observer.RenderStart(ctx, s.config.Name)

	n, stats, err := s.stream(ctx, root)

	s.config.Observer.RenderEnd(ctx, Report{
		Name:     s.config.Name,
		Stats:    stats,
		Bytes:    n,
		Duration: time.Since(start),
		Err:      err,
	})
	return err
}

func (s *StreamingRenderer) stream(ctx context.Context, root any) (int, Stats, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := &counters{}
	frags, err := s.enumerate(ctx, root, c)
	if err != nil {
		return 0, c.snapshot(), failed("flatten", err)
	}

	written := 0
	for _, frag := range frags {
		text, err := frag.Resolve(ctx)
		if err != nil {
			return written, c.snapshot(), failed("resolve", err)
		}
		if text != "" {
			n, err := io.WriteString(s.w, text)
			written += n
			if err != nil {
				return written, c.snapshot(), failed("write", err)
			}
		}
		if frag.Pending() {
			s.flush()
		}
	}
	s.flush()

	return written, c.snapshot(), nil
}

// flush flushes the writer if it supports flushing.
func (s *StreamingRenderer) flush() {
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// FlushableWriter wraps an io.Writer with optional flushing capability.
// This is useful for testing streaming behavior without using http.ResponseWriter.
type FlushableWriter struct {
	io.Writer
	FlushCount int
}

// Flush implements http.Flusher.
func (w *FlushableWriter) Flush() {
	w.FlushCount++
}
