package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/information-sharing-networks/docsign/internal/config"
	"github.com/information-sharing-networks/docsign/internal/logger"
	"github.com/information-sharing-networks/docsign/internal/server/handlers"
	"github.com/information-sharing-networks/docsign/internal/server/middleware"
	"github.com/information-sharing-networks/docsign/internal/version"
)

type Server struct {
	config *config.ServerEnvironment
	logger *slog.Logger
	router *chi.Mux
	deps   *Dependencies
}

// NewServer builds the server dependencies from cfg and registers the routes.
// Call Close to release the store connections once the server has stopped.
func NewServer(ctx context.Context, cfg *config.ServerEnvironment, logger *slog.Logger) (*Server, error) {
	deps, err := buildDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return NewServerWithDependencies(cfg, logger, deps)
}

// NewServerWithDependencies creates a server around existing dependencies.
func NewServerWithDependencies(cfg *config.ServerEnvironment, logger *slog.Logger, deps *Dependencies) (*Server, error) {
	if deps == nil || deps.Engine == nil || deps.Verifier == nil {
		return nil, fmt.Errorf("server requires a workflow engine and a token verifier")
	}

	server := &Server{
		config: cfg,
		logger: logger,
		router: chi.NewRouter(),
		deps:   deps,
	}

	server.setupMiddleware()
	server.registerRoutes()

	return server, nil
}

// Router returns the HTTP handler (for tests).
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(logger.RequestLogging(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.SecurityHeaders(s.config.Environment))
	s.router.Use(middleware.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst))
	s.router.Use(middleware.RequestSizeLimit(s.config.MaxRequestBodyBytes))
}

func (s *Server) registerRoutes() {
	documents := handlers.NewDocumentsHandler(s.deps.Engine)

	s.router.Get("/health/live", handlers.HandleLiveness)
	s.router.Get("/health/ready", handlers.HandleReadiness(s.deps.Pingers, s.config.DatabasePingTimeout))
	s.router.Get("/version", handlers.HandleVersion(version.Get()))
	s.router.Get("/openapi.json", handlers.HandleOpenAPI)

	s.router.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(s.deps.Verifier))

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", documents.HandleUpload)
			r.Get("/", documents.HandleListOwned)
			r.Get("/pending", documents.HandleListPending)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", documents.HandleGet)
				r.Delete("/", documents.HandleDelete)
				r.Get("/content", documents.HandleGetContent)
				r.Post("/accept", documents.HandleAccept)
				r.Post("/reject", documents.HandleReject)
				r.Post("/delay", documents.HandleDelay)
				r.Put("/fields", documents.HandlePlaceFields)
				r.Post("/signed-copy", documents.HandleSignedCopy)
			})
		})
	})
}

// Start serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	serverAddr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	httpServer := &http.Server{
		Addr:         serverAddr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("service listening",
			slog.String("environment", s.config.Environment),
			slog.String("address", serverAddr),
			slog.String("max_request_body_bytes", strconv.FormatInt(s.config.MaxRequestBodyBytes, 10)))

		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ServerShutdownTimeout)
	defer shutdownCancel()

	s.logger.Info("shutting down HTTP server")

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("HTTP server shutdown error",
			slog.String("error", err.Error()))
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close releases the store, lock and any other resources opened by NewServer.
func (s *Server) Close() {
	closeAll(s.deps.Closers, s.logger)
	s.logger.Info("store connections closed")
}
