// Package api provides the HTTP browse server for the experiment-tracking workspace.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/cascade-ml/cascade-ui/internal/api/handlers"
	"github.com/cascade-ml/cascade-ui/internal/api/health"
	"github.com/cascade-ml/cascade-ui/internal/api/middleware"
	"github.com/cascade-ml/cascade-ui/internal/browser"
	"github.com/cascade-ml/cascade-ui/internal/provider"
	"github.com/cascade-ml/cascade-ui/pkg/config"
)

// Version is the current version of the browse server.
// This should be set at build time using ldflags.
var Version = "dev"

// requestTimeout bounds every non-streaming request.
const requestTimeout = 60 * time.Second

// Server represents the HTTP browse server.
type Server struct {
	router        chi.Router
	httpServer    *http.Server
	browser       *browser.Browser
	tables        *handlers.TableRegistry
	versions      *provider.VersionCache
	config        *config.Config
	logger        *slog.Logger
	healthChecker *health.Checker
}

// NewServer creates a new browse server. backend is pinged by the health
// check; snapshots may be nil when the snapshot cache is disabled.
func NewServer(cfg *config.Config, b *browser.Browser, backend health.Pinger, snapshots health.SnapshotCounter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		browser:  b,
		tables:   handlers.NewTableRegistry(b.DefaultFields(), handlers.DefaultMaxTables),
		versions: provider.NewVersionCache(cfg.VersionTTL),
		config:   cfg,
		logger:   logger.With("component", "server"),
	}

	s.healthChecker = health.NewChecker(backend, snapshots, Version)

	s.setupRouter()
	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // item table streams stay open
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))

	browseHandler := handlers.NewBrowseHandler(s.browser, s.tables, s.versions, s.logger)
	itemsHandler := handlers.NewItemsHandler(s.browser, s.tables, s.logger)
	commentHandler := handlers.NewCommentHandler(s.browser, s.logger)

	// Streaming routes live outside the request timeout.
	r.Get("/api/repos/{repo}/lines/{line}/items/ws", itemsHandler.Stream)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(requestTimeout))

		r.Get("/health", s.healthChecker.Handler())

		r.Get("/api/version", browseHandler.Version)
		r.Get("/api/workspace", browseHandler.Workspace)
		r.Get("/api/tree", browseHandler.Tree)
		r.Get("/api/navigate", browseHandler.Navigate)
		r.Post("/api/comments", commentHandler.Create)

		r.Get("/api/repos/{repo}", browseHandler.Repo)
		r.Get("/api/repos/{repo}/lines/{line}", browseHandler.Line)
		r.Get("/api/repos/{repo}/lines/{line}/items", itemsHandler.Table)
		r.Get("/api/repos/{repo}/lines/{line}/items/{num}", browseHandler.Item)
		r.Get("/api/repos/{repo}/lines/{line}/items/{num}/config", browseHandler.RunConfig)
		r.Get("/api/repos/{repo}/lines/{line}/items/{num}/log", browseHandler.RunLog)
	})

	s.router = r
}

// Start starts the HTTP server and blocks until ctx is done or the server
// fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting browse server", "addr", s.httpServer.Addr, "backend", s.config.APIURL)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// HTTPServer returns the underlying server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down browse server")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router returns the chi router for testing purposes.
func (s *Server) Router() chi.Router {
	return s.router
}
