// Package web provides the HTTP server and handlers for the CSV dashboard.
package web

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/JonMunkholm/csvdash/internal/config"
	"github.com/JonMunkholm/csvdash/internal/core"
	mw "github.com/JonMunkholm/csvdash/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// Server is the HTTP server for the dashboard.
type Server struct {
	service *core.Service
	cfg     *config.Config
	tracer  trace.Tracer
	router  *chi.Mux
	server  *http.Server

	limiter       *rateLimiter
	uploadLimiter *rateLimiter
}

// NewServer creates a Server. A nil tracer disables request spans.
func NewServer(service *core.Service, cfg *config.Config, tracer trace.Tracer) *Server {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	s := &Server{
		service: service,
		cfg:     cfg,
		tracer:  tracer,
		router:  chi.NewRouter(),
	}
	if cfg.Rate.Enabled {
		s.limiter = newRateLimiter(cfg.Rate.RequestsPerMinute, time.Minute)
		s.uploadLimiter = newRateLimiter(cfg.Rate.UploadLimit, time.Minute)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Tracing(s.tracer))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.limiter != nil {
		s.router.Use(s.limiter.middleware(s))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	s.router.Get("/healthz", s.handleHealthz)

	s.router.Group(func(r chi.Router) {
		r.Use(mw.Session(mw.SessionOptions{
			CookieName: s.cfg.Session.CookieName,
			Secure:     s.cfg.Session.CookieSecure,
			MaxAge:     s.cfg.Session.TTL,
		}))

		// Pages
		r.Get("/", s.handleDashboard)
		r.Get("/cleaning", s.handleCleaning)
		r.Get("/download", s.handleDownload)

		r.Route("/api", func(r chi.Router) {
			r.Use(mw.APIKeyAuth(&s.cfg.Security))

			// Dataset
			upload := r.With()
			if s.uploadLimiter != nil {
				upload = r.With(s.uploadLimiter.middleware(s))
			}
			upload.Post("/dataset", s.handleUpload)
			r.Get("/dataset", s.handleDataset)
			r.Get("/dataset/rows", s.handleRows)
			r.Get("/dataset/summary", s.handleSummary)

			// Column editor
			r.Post("/clean/remove-columns", s.handleRemoveColumns)
			r.Post("/clean/remove-duplicates", s.handleRemoveDuplicates)
			r.Post("/clean/fill", s.handleFill)
			r.Get("/clean/pending", s.handlePending)
			r.Post("/clean/apply", s.handleApply)
			r.Post("/clean/cancel", s.handleCancel)

			// Export
			r.Get("/export", s.handleExport)

			r.Delete("/session", s.handleEndSession)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopLimiters()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) stopLimiters() {
	if s.limiter != nil {
		s.limiter.stop()
	}
	if s.uploadLimiter != nil {
		s.uploadLimiter.stop()
	}
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

const contentSecurityPolicy = "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:; font-src 'self'; form-action 'self'; frame-ancestors 'none'"

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				w.Header().Set("Content-Security-Policy", contentSecurityPolicy)
			}
			next.ServeHTTP(w, r)
		})
	}
}
