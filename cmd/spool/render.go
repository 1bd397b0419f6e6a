package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/spool/internal/config"
	"github.com/vango-dev/spool/internal/dev"
	"github.com/vango-dev/spool/internal/errors"
	"github.com/vango-dev/spool/pkg/document"
	"github.com/vango-dev/spool/pkg/events"
	"github.com/vango-dev/spool/pkg/ids"
	"github.com/vango-dev/spool/pkg/publish"
	"github.com/vango-dev/spool/pkg/render"
	"github.com/vango-dev/spool/pkg/store"
)

type renderOptions struct {
	out    string
	ids    string
	stream bool
	watch  bool
}

func renderCmd(flags *globalFlags) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render <document>",
		Short: "Render a document to HTML",
		Long: `Render a YAML or Markdown document to a complete HTML page.

The page is published to the target configured in spool.json:
a file below publish.dir, or an object in an S3 bucket.

Output:
  --out=-        write to standard output
  --out=s3       upload to the configured bucket
  --out=<dir>    write <document>.html below <dir>

Examples:
  spool render index.yaml
  spool render README.md --out=-
  spool render index.yaml --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			return runRender(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Output: -, s3 or a directory (default from spool.json)")
	cmd.Flags().StringVar(&opts.ids, "ids", "", "Unique id source: clock, counter or uuid (default from spool.json)")
	cmd.Flags().BoolVar(&opts.stream, "stream", false, "Stream output as fragments resolve (with --out=-)")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Render again when the document changes")

	return cmd
}

func runRender(ctx context.Context, out io.Writer, cfg *config.Config, path string, opts *renderOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.ids != "" {
		cfg.Render.IDs = opts.ids
	}
	if opts.stream {
		cfg.Render.Streaming = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	st, err := store.Open(cfg.StoreOptions())
	if err != nil {
		return errors.New(errors.CodeStoreUnavailable).Wrap(err)
	}
	defer st.Close()

	sink, err := newSink(ctx, out, cfg, opts.out)
	if err != nil {
		return err
	}

	r := &documentRenderer{
		cfg:     cfg,
		path:    path,
		sink:    sink,
		handler: events.NewHandler(st, slog.Default()),
		out:     out,
		stream:  cfg.Render.Streaming && opts.out == "-",
	}

	if !opts.watch {
		return r.render(ctx)
	}

	if err := r.render(ctx); err != nil {
		errors.Print(os.Stderr, err)
	}
	return watch(ctx, out, cfg, path, r)
}

// documentRenderer renders one document to its sink.
type documentRenderer struct {
	cfg     *config.Config
	path    string
	sink    publish.Sink
	handler *events.Handler
	out     io.Writer
	stream  bool
}

func (d *documentRenderer) render(ctx context.Context) error {
	doc, err := loadDocument(d.path)
	if err != nil {
		return err
	}

	idSource, err := d.cfg.IDSource()
	if err != nil {
		return errors.New(errors.CodeConfigInvalid).Wrap(err)
	}

	if timeout := d.cfg.RenderTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rc := renderConfig(idSource, d.handler, pageName(d.path))

	if d.stream {
		if err := render.NewStreamingRenderer(d.out, rc).Render(ctx, doc.Render()); err != nil {
			return renderError(d.path, err)
		}
		return nil
	}

	location, err := publish.Page(ctx, render.NewRenderer(rc), d.sink, pageName(d.path), doc.Render())
	if err != nil {
		var re *render.RenderError
		if stderrors.As(err, &re) {
			return renderError(d.path, err)
		}
		return errors.New(errors.CodePublishFailed).Wrap(err)
	}

	if _, ok := d.sink.(publish.WriterSink); !ok {
		success(d.out, "Rendered %s → %s", d.path, location)
	}
	return nil
}

// renderConfig returns the renderer configuration shared by commands.
func renderConfig(src ids.Source, handler *events.Handler, name string) render.RendererConfig {
	rc := render.RendererConfig{
		IDs:    src,
		Logger: slog.Default(),
		Name:   name,
	}
	if handler != nil {
		rc.Handler = handler.ForRender()
	}
	return rc
}

// newSink selects the publish target from the --out flag and config.
func newSink(ctx context.Context, out io.Writer, cfg *config.Config, flag string) (publish.Sink, error) {
	switch {
	case flag == "-":
		return publish.WriterSink{W: out}, nil
	case flag == config.TargetS3 || (flag == "" && cfg.Publish.Target == config.TargetS3):
		if cfg.Publish.Bucket == "" {
			return nil, errors.New(errors.CodeInvalidFlag).
				WithDetail("--out=s3 needs publish.bucket in spool.json")
		}
		client := publish.NewS3Client(publish.S3Config{
			Region:   cfg.Publish.Region,
			Endpoint: cfg.Publish.Endpoint,
		})
		sink := publish.NewS3Sink(client, cfg.Publish.Bucket, cfg.Publish.Prefix)
		if cfg.Publish.CacheControl != "" {
			sink = sink.WithCacheControl(cfg.Publish.CacheControl)
		}
		return sink, nil
	case flag != "":
		return publish.FileSink{Dir: flag}, nil
	default:
		return publish.FileSink{Dir: cfg.OutputPath()}, nil
	}
}

// pageName returns the output name for a document: index.yaml becomes
// index.html.
func pageName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".html"
}

// loadDocument loads path, converting failures to coded errors.
func loadDocument(path string) (*document.Document, error) {
	doc, err := document.Load(path)
	switch {
	case err == nil:
		return doc, nil
	case stderrors.Is(err, os.ErrNotExist):
		return nil, errors.New(errors.CodeDocumentNotFound).
			WithLocation(path, 0, 0).
			Wrap(err)
	case stderrors.Is(err, document.ErrInvalid):
		return nil, errors.New(errors.CodeDocumentInvalid).
			WithLocationFromError(path, err).
			Wrap(err)
	default:
		return nil, errors.New(errors.CodeDocumentInvalid).Wrap(err)
	}
}

func renderError(path string, err error) error {
	e := errors.New(errors.CodeRenderFailed).Wrap(err)
	e.Location = &errors.Location{File: path}
	if stderrors.Is(err, context.DeadlineExceeded) {
		e.WithSuggestion("Raise render.timeout in spool.json")
	}
	return e
}

// watch renders again on every change until interrupted.
func watch(ctx context.Context, out io.Writer, cfg *config.Config, path string, r *documentRenderer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := dev.NewWatcher(dev.WatcherConfig{
		Paths:    dev.CollectWatchPaths(cfg, path),
		Ignore:   cfg.Watch.Ignore,
		Debounce: cfg.DebounceInterval(),
		Logger:   slog.Default(),
	})
	w.OnChange(func(c dev.Change) {
		slog.Debug("change detected", "path", c.Path, "type", c.Type)
		if err := r.render(ctx); err != nil {
			errors.Print(os.Stderr, err)
		}
	})

	info(out, "Watching %s (Ctrl+C to stop)", path)
	err := w.Start(ctx)
	if stderrors.Is(err, context.Canceled) {
		fmt.Fprintln(out)
		return nil
	}
	return err
}
