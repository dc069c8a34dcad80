// Package server exposes a modgraph.Gateway over HTTP with a chi router.
// It is the persistence side the remote gateway talks to.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GoCodeAlone/modgraph"
	"github.com/GoCodeAlone/modgraph/config"
	"github.com/GoCodeAlone/modgraph/surrogate"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// ErrNoGateway is returned by New without a backing gateway.
var ErrNoGateway = errors.New("server requires a gateway")

// Server serves the modules API.
type Server struct {
	gateway modgraph.Gateway
	logger  modgraph.Logger
	subject modgraph.Subject
	metrics *Metrics
	now     func() time.Time

	surrogates *surrogate.Registry

	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger modgraph.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSubject publishes a CloudEvent for every successful mutation.
func WithSubject(subject modgraph.Subject) Option {
	return func(s *Server) {
		s.subject = subject
	}
}

// WithMetrics records Prometheus metrics and serves them on /metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithSurrogates serves reg on /api/surrogates and /api/run instead of the
// default static_stub and mock_llm pair.
func WithSurrogates(reg *surrogate.Registry) Option {
	return func(s *Server) {
		if reg != nil {
			s.surrogates = reg
		}
	}
}

// New builds the router around gw.
func New(gw modgraph.Gateway, opts ...Option) (*Server, error) {
	if gw == nil {
		return nil, ErrNoGateway
	}
	s := &Server{
		gateway: gw,
		logger:  nopLogger{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.surrogates == nil {
		s.surrogates = surrogate.Defaults(config.SurrogateConfig{}, surrogate.WithLogger(s.logger))
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.metrics.middleware)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "The requested resource was not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "The request method is not allowed for this endpoint")
	})

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/modules", s.handleListModules)
		r.Post("/modules", s.handleCreateModule)
		r.Get("/modules/{name}", s.handleGetModule)
		r.Put("/modules/{name}", s.handleUpdateModule)
		r.Delete("/modules/{name}", s.handleDeleteModule)
		r.Get("/graph", s.handleGraph)
		r.Get("/statistics", s.handleStatistics)
		r.Get("/export.csv", s.handleExport)
		r.Get("/metadata", s.handleMetadata)
		r.Get("/surrogates", s.handleListSurrogates)
		r.Post("/run", s.handleRunSurrogate)
	})
	return r
}

// Run listens on cfg's address until ctx is cancelled, then shuts down
// gracefully within cfg.ShutdownTimeout.
func (s *Server) Run(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Stopping HTTP server", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// EventSource is the CloudEvents source of server events.
const EventSource = "modgraph.server"

func (s *Server) emit(ctx context.Context, eventType string, data any) {
	if err := s.emitEvent(ctx, eventType, data); err != nil {
		modgraph.HandleEventEmissionError(err, s.logger, eventType)
	}
}

func (s *Server) emitEvent(ctx context.Context, eventType string, data any) error {
	if s.subject == nil {
		return modgraph.ErrNoSubjectForEventEmission
	}
	return s.subject.NotifyObservers(ctx, modgraph.NewCloudEvent(eventType, EventSource, data, nil))
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
