// Package publish writes rendered pages to their destination.
//
// A Sink stores one named page. FileSink writes below a local directory,
// S3Sink uploads to an S3 bucket and WriterSink copies to an io.Writer such
// as standard output.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vango-dev/spool/pkg/render"
)

// ErrInvalidName is returned for page names that escape the sink root.
var ErrInvalidName = errors.New("publish: invalid page name")

// Sink stores rendered pages.
type Sink interface {
	// Publish stores page under name and returns where it was stored.
	Publish(ctx context.Context, name string, page []byte) (string, error)
}

// Page renders root with r and publishes the output under name. Nothing is
// published if the render fails.
func Page(ctx context.Context, r *render.Renderer, sink Sink, name string, root any) (string, error) {
	out, err := r.RenderToString(ctx, root)
	if err != nil {
		return "", err
	}
	return sink.Publish(ctx, name, []byte(out))
}

// cleanName validates name and returns it as a slash separated relative
// path.
func cleanName(name string) (string, error) {
	name = strings.TrimPrefix(filepath.ToSlash(name), "/")
	clean := path.Clean(name)
	if name == "" || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return clean, nil
}

// FileSink writes pages below Dir, creating directories as needed.
type FileSink struct {
	Dir string
}

// Publish implements Sink.
func (s FileSink) Publish(_ context.Context, name string, page []byte) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}

	target := filepath.Join(s.Dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}
	if err := os.WriteFile(target, page, 0o644); err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}
	return target, nil
}

// WriterSink copies every page to W.
type WriterSink struct {
	W io.Writer
}

// Publish implements Sink.
func (s WriterSink) Publish(_ context.Context, name string, page []byte) (string, error) {
	if _, err := s.W.Write(page); err != nil {
		return "", fmt.Errorf("publish: %w", err)
	}
	return name, nil
}
