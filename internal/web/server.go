// Package web provides the HTTP server and handlers for editing tables.
package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/dimtable/internal/config"
	"github.com/JonMunkholm/dimtable/internal/core"
	"github.com/JonMunkholm/dimtable/internal/logging"
	mw "github.com/JonMunkholm/dimtable/internal/web/middleware"
)

// MaxFormSize bounds the body of a save.
const MaxFormSize = 1 << 20

// Server is the HTTP server of the table editor.
type Server struct {
	cfg      *config.Config
	service  *core.Service
	logger   *slog.Logger
	router   *chi.Mux
	server   *http.Server
	health   func(context.Context) error
	gatherer prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithHealthCheck makes /healthz fail when check does, e.g. a database ping.
func WithHealthCheck(check func(context.Context) error) Option {
	return func(s *Server) { s.health = check }
}

// WithMetrics serves the metrics of g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// NewServer creates a Server. A nil logger discards output.
func NewServer(cfg *config.Config, service *core.Service, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		cfg:     cfg,
		service: service,
		logger:  logger,
		router:  chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies, s.logger))
	s.router.Use(mw.Logger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	if d := s.cfg.Server.RequestTimeout; d > 0 {
		s.router.Use(middleware.Timeout(d))
	}
	s.router.Use(s.securityHeaders)
	if s.cfg.Rate.Enabled {
		s.router.Use(s.rateLimit(newIPLimiter(s.cfg.Rate.RequestsPerMinute)))
	}
	s.router.Use(withClient)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	saves := chi.Middlewares{}
	if s.cfg.Rate.Enabled {
		saves = append(saves, s.rateLimit(newIPLimiter(s.cfg.Rate.SaveLimit)))
	}

	s.router.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Get("/table/{tableKey}", s.handleTableView)
	s.router.With(saves...).Post("/table/{tableKey}", s.handleTableSave)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/tables", s.handleListTables)
		r.Get("/table/{tableKey}", s.handleTableJSON)
		r.With(saves...).
			With(mw.APIKeyAuth(s.cfg.Security, s.logger)).
			Post("/table/{tableKey}", s.handleTableSaveJSON)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	sc := s.cfg.Server
	s.server = &http.Server{
		Addr:         sc.Addr(),
		Handler:      s.router,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
	}

	s.logger.Info("starting server", "addr", sc.Addr())
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

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			// Inline styles come from the page layout; no scripts are served.
			h.Set("Content-Security-Policy", "default-src 'self'; script-src 'none'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; form-action 'self'")
		}
		next.ServeHTTP(w, r)
	})
}

// withClient records the client address and user agent for save logs.
func withClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithClient(r.Context(), mw.ClientIP(r), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
