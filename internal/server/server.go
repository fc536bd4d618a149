package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/faucetdb/touchline/internal/config"
	"github.com/faucetdb/touchline/internal/handler"
	"github.com/faucetdb/touchline/internal/server/middleware"
	"github.com/faucetdb/touchline/internal/service"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxBodySize     int64 // bytes
	LoginRateLimit  int   // attempts per minute per client IP, 0 disables
	AdminRole       string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		MaxBodySize:     10 * 1024 * 1024, // 10MB
		LoginRateLimit:  10,
		AdminRole:       "admin",
	}
}

// FromConfig builds the server configuration from the loaded settings.
func FromConfig(c config.Config) Config {
	return Config{
		Host:            c.Server.Host,
		Port:            c.Server.Port,
		ShutdownTimeout: c.Server.ShutdownTimeout,
		CORSOrigins:     c.Server.CORSOrigins,
		MaxBodySize:     c.Server.MaxBodySize,
		LoginRateLimit:  c.Server.LoginRateLimit,
		AdminRole:       c.Auth.AdminRole,
	}
}

// Services are the domain services the routes dispatch to.
type Services struct {
	Entities *service.EntityService
	Auth     *service.AuthService
	Users    *service.UserService
}

// Server is the top-level HTTP server. It owns the Chi router and closes
// the database on shutdown.
type Server struct {
	cfg        Config
	router     chi.Router
	svc        Services
	closer     io.Closer
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. closer, when non-nil, is closed after shutdown.
func New(cfg Config, svc Services, closer io.Closer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.AdminRole == "" {
		cfg.AdminRole = "admin"
	}
	s := &Server{
		cfg:    cfg,
		svc:    svc,
		closer: closer,
		logger: logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))
	if s.cfg.MaxBodySize > 0 {
		r.Use(chimw.RequestSize(s.cfg.MaxBodySize))
	}

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	entities := handler.NewEntityHandler(s.svc.Entities, s.logger)
	auth := handler.NewAuthHandler(s.svc.Auth, s.logger)
	users := handler.NewUserHandler(s.svc.Users, s.logger)
	authenticate := middleware.Authenticate(s.svc.Auth)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(s.cfg.LoginRateLimit)).Post("/auth/login", auth.Login)
		r.Post("/users", users.Register)

		// Account self-service
		r.Route("/users/me", func(r chi.Router) {
			r.Use(authenticate)
			r.Get("/", users.Me)
			r.Patch("/", users.UpdateMe)
			r.Delete("/", users.DeleteMe)
			r.Put("/password", users.ChangePassword)
			r.Get("/image", users.ImageDeleteURL)
			r.Put("/image", users.SaveImage)
			r.Delete("/image", users.DeleteImage)
		})

		// Account administration
		r.Route("/admin/users", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(middleware.RequireRole(s.cfg.AdminRole))
			r.Get("/", users.AdminList)
			r.Delete("/", users.AdminDelete)
			r.Patch("/{id}", users.AdminUpdate)
		})

		// Catalog introspection
		r.Get("/entities", entities.ListEntities)
		r.Get("/entities/{entity}", entities.DescribeEntity)

		// Generic entity CRUD: reads are public, writes need a token.
		r.Route("/{entity}", func(r chi.Router) {
			r.Get("/", entities.List)
			r.Get("/{id}", entities.Get)
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/", entities.Create)
				r.Patch("/{id}", entities.Update)
				r.Delete("/{id}", entities.Delete)
			})
		})
	})

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the database answers
// a ping, or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status, httpStatus := "ok", http.StatusOK
	check := "ok"

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.svc.Entities.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		status, httpStatus = "degraded", http.StatusServiceUnavailable
		check = "unreachable"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": map[string]string{"database": check},
	})
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the database.
func (s *Server) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			s.logger.Warn("closing database", "error", err)
		}
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
