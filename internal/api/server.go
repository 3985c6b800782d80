// Package api provides the HTTP search endpoint for livesearch.
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/wesm/livesearch/internal/config"
	"github.com/wesm/livesearch/internal/index"
)

// Searcher defines the index operations the endpoint needs.
type Searcher interface {
	FindMatches(prefix string, delta, k int) []index.Match
	Schema() index.Schema
	Len() int
}

// Server represents the HTTP search server.
type Server struct {
	cfg         *config.Config
	searcher    Searcher
	logger      *slog.Logger
	router      chi.Router
	rateLimiter *RateLimiter
	metrics     *Metrics

	mu     sync.Mutex
	server *http.Server
	closed bool
}

// NewServer creates a new search server.
func NewServer(cfg *config.Config, searcher Searcher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		searcher: searcher,
		logger:   logger,
		metrics:  NewMetrics("livesearch"),
	}
	s.router = s.setupRouter()
	return s
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(s.loggerMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(10 * time.Second))

	// CORS middleware (disabled when no origins configured)
	corsConfig := DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.cfg.Server.CORSOrigins
	r.Use(CORSMiddleware(corsConfig))

	// Health and metrics are not rate limited
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		if s.cfg.Server.RateLimitQPS > 0 {
			s.rateLimiter = NewRateLimiter(s.cfg.Server.RateLimitQPS, s.cfg.Server.RateLimitBurst)
			r.Use(RateLimitMiddleware(s.rateLimiter))
		}
		r.Get("/", s.handleSearch)
	})

	return r
}

// Start begins listening on the configured address. It blocks until the
// server stops and returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr())
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return http.ErrServerClosed
	}
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.Info("starting search server",
		"addr", ln.Addr().String(),
		"schema", s.searcher.Schema().Name,
		"records", s.searcher.Len(),
	)
	return srv.Serve(ln)
}

// Shutdown gracefully shuts down the server. A server shut down before it
// started refuses to start.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down search server")
	return srv.Shutdown(ctx)
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// loggerMiddleware logs HTTP requests.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
