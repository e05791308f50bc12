// Package http hosts the server, router abstraction and middleware
// wiring for the API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/folioapp/api/internal/config"
	"github.com/folioapp/api/internal/infra/http/middleware"
	"github.com/folioapp/api/pkg/auth"
	"github.com/folioapp/api/pkg/logger"
)

// Server represents the HTTP server.
type Server struct {
	httpServer   *http.Server
	router       Router
	config       *config.Config
	logger       *logger.Logger
	cleanupFuncs []func()
}

// NewServer creates the HTTP server with the global middleware chain
// applied. Order matters: recovery first, then request identity,
// headers, admission, body/rate limits, timeout, metrics and logging.
func NewServer(cfg *config.Config, verifier *auth.Verifier, log *logger.Logger) *Server {
	s := &Server{
		config: cfg,
		logger: log,
		router: NewChiRouter(),
	}

	ipLimitMw, ipLimitStop := middleware.IPRateLimit(&cfg.RateLimit, log)
	s.cleanupFuncs = append(s.cleanupFuncs, ipLimitStop)

	s.router.Use(
		middleware.Recovery(log, cfg.IsProduction()),
		middleware.RequestID(),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{
			HSTSEnabled: cfg.IsProduction(),
		}),
		middleware.CORS(&cfg.CORS),
		middleware.Admission(middleware.AdmissionConfig{
			Verifier:     verifier,
			SignInURL:    cfg.Auth.SignInURL,
			DashboardURL: cfg.Auth.DashboardURL,
			IsProduction: cfg.IsProduction(),
		}, log),
		middleware.BodyLimit(cfg.Server.MaxBodySize),
		ipLimitMw,
		middleware.Timeout(cfg.Server.RequestTimeout),
		middleware.Metrics(),
		middleware.Logger(log),
	)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.router.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	return s
}

// Router returns the router for registering handlers.
func (s *Server) Router() Router {
	return s.router
}

// OnShutdown registers a cleanup function called during Shutdown.
func (s *Server) OnShutdown(fn func()) {
	s.cleanupFuncs = append(s.cleanupFuncs, fn)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	for _, cleanup := range s.cleanupFuncs {
		cleanup()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}
