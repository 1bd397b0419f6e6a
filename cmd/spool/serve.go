package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/spool/internal/config"
	"github.com/vango-dev/spool/internal/errors"
	"github.com/vango-dev/spool/pkg/document"
	"github.com/vango-dev/spool/pkg/events"
	"github.com/vango-dev/spool/pkg/html"
	"github.com/vango-dev/spool/pkg/live"
	"github.com/vango-dev/spool/pkg/middleware"
	"github.com/vango-dev/spool/pkg/store"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve <document>...",
		Short: "Serve documents with live updates",
		Long: `Serve documents as pages that update in the browser.

Each document is served at /<name>; index documents are served at /.
Documents are read again on every request. Clicking a button bound to
an action updates the state store and pushes the new page to every
connected browser.

Examples:
  spool serve index.yaml
  spool serve index.yaml about.md --port=8080`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd.OutOrStdout(), cfg, args)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run on (default from spool.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from spool.json)")

	return cmd
}

func runServe(ctx context.Context, out io.Writer, cfg *config.Config, paths []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	st, err := store.Open(cfg.StoreOptions())
	if err != nil {
		return errors.New(errors.CodeStoreUnavailable).Wrap(err)
	}
	defer st.Close()

	srv, err := newServer(cfg, st, paths)
	if err != nil {
		return err
	}

	success(out, "Serving %d document(s) at %s", len(paths), cfg.URL())
	if err := srv.Run(ctx); err != nil {
		return errors.New(errors.CodeServerFailed).Wrap(err)
	}
	return nil
}

// newServer builds a live server with a page per document.
func newServer(cfg *config.Config, st store.Store, paths []string) (*live.Server, error) {
	logger := slog.Default()
	srv := live.New(cfg.LiveConfig(), events.NewHandler(st, logger), logger)

	idSource, err := cfg.IDSource()
	if err != nil {
		return nil, errors.New(errors.CodeConfigInvalid).Wrap(err)
	}
	srv.SetIDs(idSource)
	if cfg.Server.Tracing {
		srv.Observe(middleware.OpenTelemetry())
	}

	seen := make(map[string]string)
	for _, path := range paths {
		page := &documentPage{path: path, logger: logger}
		if err := page.load(); err != nil {
			return nil, err
		}

		pattern := routeFor(path)
		if other, ok := seen[pattern]; ok {
			return nil, errors.New(errors.CodeInvalidFlag).
				WithDetail(fmt.Sprintf("%s and %s are both served at %s", other, path, pattern))
		}
		seen[pattern] = path
		srv.Page(pattern, page.serve)
	}
	return srv, nil
}

// routeFor returns the route serving a document.
func routeFor(path string) string {
	name := strings.TrimSuffix(pageName(path), ".html")
	if name == "index" {
		return "/"
	}
	return "/" + name
}

// documentPage reloads a document for every request, keeping the last good
// version when it no longer loads.
type documentPage struct {
	path   string
	logger *slog.Logger

	mu  sync.Mutex
	doc *document.Document
}

func (p *documentPage) load() error {
	doc, err := loadDocument(p.path)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()
	return nil
}

func (p *documentPage) serve(*http.Request) html.Page {
	if err := p.load(); err != nil {
		p.logger.Warn("document reload failed, serving last version", "path", p.path, "error", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Page()
}
