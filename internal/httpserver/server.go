package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"studytube/backend/internal/apperror"
	"studytube/backend/internal/config"
	authusecase "studytube/backend/internal/usecase/auth"
)

// SessionVerifier resolves the user id carried by a session token.
type SessionVerifier interface {
	CookieName() string
	Validate(token string) (string, error)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker func(ctx context.Context) error

// Dependencies are the collaborators the HTTP adapter routes to.
type Dependencies struct {
	Auth       *authusecase.Service
	Sessions   SessionVerifier
	Normalizer *apperror.Normalizer
	Metrics    *Metrics
	Logger     *slog.Logger
	// Health is optional; when set /health also checks the store.
	Health HealthChecker
}

// Server wraps the HTTP server lifecycle.
type Server struct {
	httpServer  *http.Server
	router      *http.ServeMux
	authService *authusecase.Service
	sessions    SessionVerifier
	errors      *apperror.Normalizer
	metrics     *Metrics
	logger      *slog.Logger
	health      HealthChecker
	addr        string
}

// NewServer constructs a new Server with configured dependencies.
func NewServer(cfg config.Config, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	normalizer := deps.Normalizer
	if normalizer == nil {
		normalizer = apperror.NewNormalizer(apperror.ParseMode(cfg.Env), logger)
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	mux := http.NewServeMux()
	srv := &Server{
		router:      mux,
		authService: deps.Auth,
		sessions:    deps.Sessions,
		errors:      normalizer,
		metrics:     metrics,
		logger:      logger.With("component", "http"),
		health:      deps.Health,
		addr:        cfg.Addr(),
	}

	var handler http.Handler = metrics.instrument(mux)
	handler = withCORS(handler, cfg.HTTP.AllowedOrigins)
	handler = withSecurityHeaders(!cfg.IsDevelopment(), handler)
	handler = withLogging(srv.logger, handler)
	handler = srv.withRecovery(handler)
	handler = withRequestID(handler)

	srv.httpServer = &http.Server{
		Addr:         srv.addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(srv.logger.Handler(), slog.LevelWarn),
	}
	srv.registerRoutes()
	return srv
}

// Start bootstraps the HTTP server on the configured address.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Router exposes the underlying ServeMux so routes can be registered.
func (s *Server) Router() *http.ServeMux {
	return s.router
}

// Addr returns the configured network address for the HTTP server.
func (s *Server) Addr() string {
	return s.addr
}
