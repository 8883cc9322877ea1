// Package server exposes the heatmap pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz                liveness and build version
//	GET  /v1/schemes             registered color schemes
//	POST /v1/renders             render a point set, returns 201 with a record
//	GET  /v1/renders/{id}        the render record
//	GET  /v1/renders/{id}.png    the colorized image
//	GET  /v1/renders/{id}.kml    a ground overlay referencing {id}.png
//
// Render records and their artifacts live in the runner's cache for
// [cache.TTLRecord]. Errors are JSON objects {"code", "message"}.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/heatmap/pkg/observability"
	"github.com/matzehuels/heatmap/pkg/palette"
	"github.com/matzehuels/heatmap/pkg/pipeline"
)

// Defaults for Config fields left zero.
const (
	DefaultMaxPoints       = 1_000_000
	DefaultMaxBodyBytes    = 64 << 20
	DefaultMaxCanvasPixels = 4096 * 4096
	DefaultMaxDotSize      = 1024
	shutdownTimeout        = 10 * time.Second
)

// Config tunes request limits.
type Config struct {
	MaxPoints       int
	MaxBodyBytes    int64
	MaxCanvasPixels int // width*height
	MaxDotSize      int
	Logger          *log.Logger
}

// Server serves the HTTP API.
type Server struct {
	runner   *pipeline.Runner
	palettes palette.Provider
	cfg      Config
	logger   *log.Logger
	router   chi.Router
}

// New creates a server rendering through runner. The runner's cache also
// stores render records, so a NullCache makes records unretrievable.
func New(runner *pipeline.Runner, palettes palette.Provider, cfg Config) *Server {
	if palettes == nil {
		palettes = palette.Default()
	}
	if cfg.MaxPoints <= 0 {
		cfg.MaxPoints = DefaultMaxPoints
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.MaxCanvasPixels <= 0 {
		cfg.MaxCanvasPixels = DefaultMaxCanvasPixels
	}
	if cfg.MaxDotSize <= 0 {
		cfg.MaxDotSize = DefaultMaxDotSize
	}
	if cfg.Logger == nil {
		cfg.Logger = runner.Logger
	}
	s := &Server{runner: runner, palettes: palettes, cfg: cfg, logger: cfg.Logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(hooksMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/schemes", s.handleSchemes)
		r.Post("/renders", s.handleCreateRender)
		r.Get("/renders/{file}", s.handleGetRender)
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then drains open
// requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

func hooksMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.HTTP()
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		hooks.OnResponse(r.Context(), r.Method, route, ww.Status(), time.Since(start))
	})
}
