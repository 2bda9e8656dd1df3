// Package web provides the HTTP form and JSON API for the subject register.
package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/subjects/internal/application"
	"github.com/JonMunkholm/subjects/internal/config"
	weblog "github.com/JonMunkholm/subjects/internal/web/middleware"
)

// Server is the HTTP server for the subject form.
type Server struct {
	app      *application.App
	cfg      config.ServerConfig
	security config.SecurityConfig
	gatherer prometheus.Gatherer
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a Server serving app. Metrics are read from gatherer,
// which should be the registry the App registered with.
func NewServer(app *application.App, cfg config.ServerConfig, security config.SecurityConfig, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		app:      app,
		cfg:      cfg,
		security: security,
		gatherer: gatherer,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(weblog.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}
	s.router.Use(securityHeaders)
	s.router.Use(weblog.SameOrigin)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Post("/", s.handleFormSubmit)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(weblog.APIKeyAuth(s.security))

		r.Get("/subjects", s.handleListSubjects)
		r.Post("/subjects", s.handleCreateSubject)
		r.Post("/validate", s.handleValidate)
		r.Post("/export", s.handleExport)
	})

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
}

// Start listens on the configured address until Shutdown. It returns
// http.ErrServerClosed after a graceful shutdown.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server. Calling it before Start makes a later
// Start return http.ErrServerClosed at once.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		// The form page uses one inline stylesheet and no scripts.
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; script-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}
