// Package live serves rendered pages and keeps them current.
//
// Every page request is rendered from scratch. Pages open a WebSocket to
// the server; when a click action is applied, every connected page is
// rendered again and its new body is pushed over the socket.
package live

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/spool/pkg/content"
	"github.com/vango-dev/spool/pkg/events"
	"github.com/vango-dev/spool/pkg/html"
	"github.com/vango-dev/spool/pkg/ids"
	"github.com/vango-dev/spool/pkg/middleware"
	"github.com/vango-dev/spool/pkg/render"
)

// RootID is the id of the element wrapping every page body.
const RootID = "spool-root"

// PageFunc builds the page for a request.
type PageFunc func(r *http.Request) html.Page

// Server is the live HTTP/WebSocket server.
type Server struct {
	config   *Config
	router   chi.Router
	pages    *chi.Mux
	handler  *events.Handler
	ids      ids.Source
	observer render.Observer
	metrics  *middleware.Metrics
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}

	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server applying actions with handler. A nil config uses
// DefaultConfig.
func New(config *Config, handler *events.Handler, logger *slog.Logger) *Server {
	config = config.withDefaults()
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "live")

	metrics := middleware.Prometheus(middleware.WithRegistry(config.Registry))

	s := &Server{
		config:   config,
		pages:    chi.NewRouter(),
		handler:  handler,
		ids:      ids.NewClock("spool"),
		observer: metrics,
		metrics:  metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
		clients: make(map[*client]struct{}),
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(metrics.HTTP)
	r.Use(s.logRequests)

	r.Get(config.WSPath, s.handleWebSocket)
	r.Post(config.ActionPath, s.handleAction)
	if config.MetricsPath != "" {
		r.Method(http.MethodGet, config.MetricsPath,
			promhttp.HandlerFor(config.Registry, promhttp.HandlerOpts{}))
	}
	r.Mount("/", s.pages)
	s.router = r

	return s
}

// SetIDs replaces the unique id source used by renders.
func (s *Server) SetIDs(src ids.Source) {
	s.ids = src
}

// Observe adds a render observer, such as middleware.OpenTelemetry.
func (s *Server) Observe(obs render.Observer) {
	s.observer = render.Observers{s.observer, obs}
}

// Page registers a page at pattern.
func (s *Server) Page(pattern string, fn PageFunc) {
	s.pages.Get(pattern, func(w http.ResponseWriter, r *http.Request) {
		s.servePage(w, r, pattern, fn)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type bodyOnlyKey struct{}

func (s *Server) renderer(name string) *render.Renderer {
	h := s.handler
	var handler content.EffectHandler
	if h != nil {
		handler = h.ForRender()
	}
	return render.NewRenderer(render.RendererConfig{
		IDs:      s.ids,
		Handler:  handler,
		Logger:   s.logger,
		Observer: s.observer,
		Name:     name,
	})
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request, pattern string, fn PageFunc) {
	page := fn(r)
	body := html.Element("div", []html.Attr{html.A("id", RootID)}, page.Body)

	if r.Context().Value(bodyOnlyKey{}) != nil {
		if err := s.renderer(pattern).RenderToWriter(r.Context(), w, body); err != nil {
			s.logger.Error("render failed", "page", pattern, "error", err)
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	page.Body = body
	page.Scripts = append(page.Scripts, html.ScriptTag{
		Inline: clientScript(s.config.WSPath),
		Data:   []html.Attr{html.A("spoolRoot", RootID)},
	})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	out, err := s.renderer(pattern).RenderToString(r.Context(), html.Document(page))
	if err != nil {
		s.logger.Error("render failed", "page", pattern, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write([]byte(out))
}

// renderBody renders the body of the page at path, as pushed to clients.
func (s *Server) renderBody(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(context.WithValue(ctx, bodyOnlyKey{}, true), http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	buf := &bufferWriter{header: make(http.Header), status: http.StatusOK}
	s.pages.ServeHTTP(buf, req)
	if buf.status != http.StatusOK {
		return nil, fmt.Errorf("live: render %s: status %d", path, buf.status)
	}
	return buf.body.Bytes(), nil
}

// bufferWriter captures a response in memory.
type bufferWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func (w *bufferWriter) Header() http.Header         { return w.header }
func (w *bufferWriter) Write(p []byte) (int, error) { return w.body.Write(p) }
func (w *bufferWriter) WriteHeader(status int)      { w.status = status }

// handleAction applies an action posted as JSON or form values.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	input := map[string]any{}
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			http.Error(w, "invalid action", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid action", http.StatusBadRequest)
			return
		}
		for key := range r.PostForm {
			input[key] = r.PostForm.Get(key)
		}
	}

	action, err := events.DecodeAction(input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	value, err := s.apply(r.Context(), action)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, events.ErrUnknownAction) || errors.Is(err, events.ErrNotNumeric) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"name": value.Name, "value": value.Current})
}

// apply performs action and pushes fresh bodies to every client.
func (s *Server) apply(ctx context.Context, action events.Action) (events.Value, error) {
	if s.handler == nil {
		return events.Value{}, fmt.Errorf("%w: no handler", events.ErrUnknownAction)
	}
	value, err := s.handler.Apply(ctx, action)
	s.metrics.RecordAction(action.Type, err)
	if err != nil {
		return events.Value{}, err
	}
	s.broadcast(ctx)
	return value, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s
}

// Run listens on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every client and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.closeClients()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", chimw.GetReqID(r.Context()),
			"duration", time.Since(start),
		)
	})
}

// pagePath extracts the page path a WebSocket client is viewing.
func pagePath(r *http.Request) string {
	p := r.URL.Query().Get("path")
	u, err := url.Parse(p)
	if p == "" || err != nil || u.IsAbs() || u.Host != "" {
		return "/"
	}
	return u.Path
}
