// Package server exposes the layout pipeline over HTTP.
//
// Routes:
//
//	POST /v1/layout   snapshot + options -> diagram, diagnostics, stats
//	POST /v1/render   diagram + format   -> SVG or DOT document
//	GET  /healthz     liveness
//	GET  /metrics     Prometheus exposition (when a gatherer is configured)
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/tracemap/internal/config"
	"github.com/matzehuels/tracemap/pkg/buildinfo"
	"github.com/matzehuels/tracemap/pkg/pipeline"
)

// Server serves the HTTP API.
type Server struct {
	runner   *pipeline.Runner
	cfg      config.ServerConfig
	logger   *log.Logger
	gatherer prometheus.Gatherer
	started  time.Time
	router   chi.Router
}

// Option customizes a Server.
type Option func(*Server)

// WithGatherer enables GET /metrics backed by g.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds a server around runner.
func New(runner *pipeline.Runner, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		runner:  runner,
		cfg:     cfg,
		logger:  log.Default(),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.MaxBodyBytes <= 0 {
		s.cfg.MaxBodyBytes = config.Default().Server.MaxBodyBytes
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
		r.Post("/render", s.handleRender)
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on the configured address until ctx is done, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr, "version", buildinfo.Version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
