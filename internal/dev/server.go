package dev

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"

	"github.com/vango-dev/livedom/internal/config"
	"github.com/vango-dev/livedom/internal/publish"
	"github.com/vango-dev/livedom/pkg/dom/memdom"
	"github.com/vango-dev/livedom/pkg/middleware"
	"github.com/vango-dev/livedom/pkg/mount"
	"github.com/vango-dev/livedom/pkg/remote"
	"github.com/vango-dev/livedom/pkg/vdom"
)

// ServerOptions configures the live server.
type ServerOptions struct {
	// Config is the project configuration.
	Config *config.Config

	// Logger is the server logger. The default is slog.Default().
	Logger *slog.Logger

	// Registry receives the Prometheus collectors. The default is a fresh
	// registry, exposed on the metrics path.
	Registry *prometheus.Registry

	// TracerProvider is used when tracing is enabled. The default is the
	// global provider.
	TracerProvider trace.TracerProvider

	// Store receives the rendered page after every successful reload. Nil
	// disables publishing.
	Store publish.Store

	// OnReload is called after every attempt to remount the entry, with
	// the error if it failed.
	OnReload func(err error)
}

// Server renders the entry description into a server-side document and
// mirrors it to websocket clients.
type Server struct {
	config   *config.Config
	options  ServerOptions
	logger   *slog.Logger
	doc      *memdom.Document
	provider *remote.Provider
	ticker   *mount.Ticker
	renderer *mount.Renderer
	hub      *remote.Hub
	registry *prometheus.Registry
	router   chi.Router
	watcher  *Watcher

	mu      sync.Mutex
	lastErr error
}

// NewServer creates a new live server.
func NewServer(options ServerOptions) *Server {
	cfg := options.Config
	if cfg == nil {
		cfg = config.New()
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := options.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	doc := memdom.New()
	doc.SetLogging(false)
	provider := remote.NewProvider(doc)
	ticker := mount.NewTicker(cfg.FrameInterval())

	hubOpts := []remote.HubOption{
		remote.WithRunner(ticker.Call),
		remote.WithLogger(logger.With("component", "hub")),
		remote.WithSendBuffer(cfg.Serve.SendBuffer),
		remote.WithPingInterval(cfg.PingInterval()),
	}
	if len(cfg.Serve.AllowedOrigins) > 0 {
		hubOpts = append(hubOpts, remote.WithCheckOrigin(originChecker(cfg.Serve.AllowedOrigins)))
	}
	hub := remote.NewHub(provider, hubOpts...)

	var mws []mount.Middleware
	if cfg.Tracing.Enabled {
		otelOpts := []middleware.OTelOption{middleware.WithTracerName(cfg.Tracing.TracerName)}
		if options.TracerProvider != nil {
			otelOpts = append(otelOpts, middleware.WithTracerProvider(options.TracerProvider))
		}
		mws = append(mws, middleware.OpenTelemetry(otelOpts...))
	}
	if cfg.Metrics.Enabled {
		mws = append(mws, middleware.NewMetrics(
			middleware.WithRegistry(reg),
			middleware.WithNamespace(cfg.Metrics.Namespace),
		))
		promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: cfg.Metrics.Namespace,
			Name:      "remote_clients",
			Help:      "Connected websocket clients",
		}, func() float64 { return float64(hub.Clients()) })
	}
	// Innermost, so patches are published before the outer middleware
	// closes the pass.
	mws = append(mws, hub)

	renderer := mount.New(provider,
		mount.WithScheduler(ticker),
		mount.WithRegistry(mount.NewRegistry()),
		mount.WithLogger(logger.With("component", "renderer")),
		mount.WithMiddleware(mws...),
	)

	s := &Server{
		config:   cfg,
		options:  options,
		logger:   logger,
		doc:      doc,
		provider: provider,
		ticker:   ticker,
		renderer: renderer,
		hub:      hub,
		registry: reg,
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/", s.handlePage)
	r.Get("/healthz", s.handleHealth)
	r.Get(cfg.Serve.SocketPath, hub.ServeHTTP)
	if cfg.Metrics.Enabled {
		r.Method(http.MethodGet, cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	s.router = r

	if cfg.Watch.Enabled {
		s.watcher = NewWatcher(WatcherConfig{
			Files:    []string{cfg.EntryPath()},
			Debounce: cfg.Debounce(),
			Logger:   logger.With("component", "watcher"),
		})
		s.watcher.OnChange(func(c Change) {
			if c.Removed {
				s.logger.Warn("entry removed; keeping the last view", "path", c.Path)
				return
			}
			s.logger.Info("entry changed", "path", c.Path)
			_ = s.Reload(context.Background())
		})
	}
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the websocket hub.
func (s *Server) Hub() *remote.Hub { return s.hub }

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address())
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve renders the entry and serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	tickCtx, stopTicker := context.WithCancel(context.Background())
	tickDone := make(chan struct{})
	go func() {
		defer close(tickDone)
		_ = s.ticker.Run(tickCtx)
	}()
	defer func() {
		stopTicker()
		<-tickDone
	}()

	if err := s.Reload(ctx); err != nil {
		s.logger.Error("initial render failed", "error", err)
	}

	if s.watcher != nil {
		go func() {
			if err := s.watcher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("watcher stopped", "error", err)
			}
		}()
		defer s.watcher.Stop()
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("serving", "addr", ln.Addr().String(), "entry", s.config.EntryPath())

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
	}

	_ = s.hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil && err == nil {
		err = serr
	}
	if cerr := s.ticker.Call(shutdownCtx, func() error { return s.renderer.Close(shutdownCtx) }); cerr != nil {
		s.logger.Warn("unmount failed", "error", cerr)
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}

// Reload reads the entry description and remounts it. A description that
// fails to load leaves the current view in place.
func (s *Server) Reload(ctx context.Context) error {
	err := s.reload(ctx)
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("reload failed", "error", err)
	} else if s.options.Store != nil {
		if perr := s.publish(ctx); perr != nil {
			s.logger.Warn("publish failed", "target", s.options.Store.String(), "error", perr)
		}
	}
	if s.options.OnReload != nil {
		s.options.OnReload(err)
	}
	return err
}

func (s *Server) reload(ctx context.Context) error {
	data, err := os.ReadFile(s.config.EntryPath())
	if err != nil {
		return fmt.Errorf("read entry: %w", err)
	}
	nodes, err := vdom.ParseJSON(data)
	if err != nil {
		return err
	}
	return s.ticker.Call(ctx, func() error {
		_, err := s.renderer.Mount(ctx, s.doc.Body(), nodes)
		return err
	})
}

// PageKey is the key the rendered page is published under.
const PageKey = "index.html"

func (s *Server) publish(ctx context.Context) error {
	body, err := s.Body(ctx)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	WritePage(&buf, s.config.Serve.SocketPath, body, nil)
	return s.options.Store.Put(ctx, PageKey, buf.Bytes(), "text/html; charset=utf-8")
}

// LastError returns the error of the most recent reload.
func (s *Server) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Body returns the current body markup.
func (s *Server) Body(ctx context.Context) (string, error) {
	var body string
	err := s.ticker.Call(ctx, func() error {
		body = memdom.InnerHTML(s.doc.Body())
		return nil
	})
	return body, err
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	body, err := s.Body(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	WritePage(w, s.config.Serve.SocketPath, body, s.LastError())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.LastError(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}
	fmt.Fprintf(w, "ok clients=%d seq=%d\n", s.hub.Clients(), s.provider.Seq())
}

// WritePage writes the server-rendered document. Live clients attach to
// socketPath and receive a snapshot of the same body. An empty socketPath
// writes a static page.
func WritePage(w io.Writer, socketPath, body string, lastErr error) {
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	if socketPath != "" {
		fmt.Fprintf(w, "<meta name=\"livedom-socket\" content=\"%s\">\n", html.EscapeString(socketPath))
	}
	fmt.Fprintf(w, "<title>livedom</title>\n</head>\n<body>\n")
	if lastErr != nil {
		fmt.Fprintf(w, "<pre class=\"livedom-error\">%s</pre>\n", html.EscapeString(lastErr.Error()))
	}
	fmt.Fprintf(w, "%s\n</body>\n</html>\n", body)
}

// originChecker accepts requests whose Origin host matches one of allowed,
// and requests without an Origin header.
func originChecker(allowed []string) func(r *http.Request) bool {
	hosts := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		if u, err := url.Parse(a); err == nil && u.Host != "" {
			hosts[strings.ToLower(u.Host)] = true
		} else {
			hosts[strings.ToLower(a)] = true
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return hosts[strings.ToLower(u.Host)]
	}
}
