// Package web exposes the catalog sync trigger over HTTP.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/catalogsync/internal/config"
	"github.com/JonMunkholm/catalogsync/internal/core"
	"github.com/JonMunkholm/catalogsync/internal/web/middleware"
)

// Syncer is the part of core.Service the HTTP layer drives.
type Syncer interface {
	Sync(ctx context.Context, req core.SyncRequest) (*core.RunReport, error)
	Status() core.SyncStatus
	LastReport() *core.RunReport
}

// Server is the HTTP server for sync triggers and status.
type Server struct {
	syncer Syncer
	cfg    *config.Config
	router *chi.Mux
	server *http.Server
}

// NewServer wires routes and middleware around syncer.
func NewServer(syncer Syncer, cfg *config.Config) *Server {
	s := &Server{
		syncer: syncer,
		cfg:    cfg,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		r.Get("/sync/status", s.handleSyncStatus)
		r.Get("/sync/last", s.handleLastReport)

		r.Group(func(r chi.Router) {
			if n := s.cfg.Security.TriggerRatePerMinute; n > 0 {
				r.Use(newTriggerLimiter(n, time.Minute).middleware)
			}
			r.Post("/sync", s.handleSync)
		})
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
