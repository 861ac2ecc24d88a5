package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/catwalkhq/catwalk/internal/config"
	"github.com/catwalkhq/catwalk/internal/directory"
	"github.com/catwalkhq/catwalk/internal/handler"
	"github.com/catwalkhq/catwalk/internal/openapi"
	"github.com/catwalkhq/catwalk/internal/server/middleware"
	"github.com/catwalkhq/catwalk/internal/service"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	LoginRateLimit  int // requests per minute per IP
	Version         string
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		LoginRateLimit:  20,
		Version:         "dev",
	}
}

// Server is the top-level HTTP server for Catwalk. It owns the Chi router,
// the configuration store, the auth and session services, and the directory
// client.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *config.Store
	auth       *service.AuthService
	sessions   *service.SessionService
	dir        *directory.Client
	httpServer *http.Server
	logger     *slog.Logger

	specOnce sync.Once
	specJSON []byte
	specErr  error
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, store *config.Store, auth *service.AuthService, sessions *service.SessionService, dir *directory.Client, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		auth:     auth,
		sessions: sessions,
		dir:      dir,
		logger:   logger,
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
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	// --- Health checks and API doc (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/openapi.json", s.handleOpenAPI)

	authHandler := handler.NewAuthHandler(s.store, s.auth, s.sessions)
	templateHandler := handler.NewTemplateHandler(s.store)
	userHandler := handler.NewUserHandler(s.dir)
	dashboardHandler := handler.NewDashboardHandler(s.dir)
	analyticsHandler := handler.NewAnalyticsHandler(s.dir)
	contentHandler := handler.NewContentHandler(s.dir)
	subscriptionHandler := handler.NewSubscriptionHandler(s.store, s.dir)
	notificationHandler := handler.NewNotificationHandler(s.dir)
	settingsHandler := handler.NewSettingsHandler(s.store, s.dir)

	r.Route("/api", func(r chi.Router) {

		// Login is the only anonymous endpoint, rate limited per IP.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(s.cfg.LoginRateLimit))
			r.Post("/auth/login/", authHandler.Login)
		})

		// Everything else requires a Bearer access token.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(s.auth, s.sessions))

			r.Route("/auth", func(r chi.Router) {
				r.Post("/logout/", authHandler.Logout)
				r.Post("/refresh-token/", authHandler.RefreshToken)
				r.Get("/profile/", authHandler.Profile)
				r.Put("/profile/update/", authHandler.UpdateProfile)
				r.Post("/change-password/", authHandler.ChangePassword)
				r.Get("/sessions/", authHandler.ListSessions)
				r.Post("/sessions/{id}/terminate/", authHandler.TerminateSession)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireSuperAdmin())
					r.Get("/login-attempts/", authHandler.ListLoginAttempts)
				})
			})

			r.Route("/templates", func(r chi.Router) {
				r.Get("/", templateHandler.List)
				r.Post("/create/", templateHandler.Create)
				r.Get("/{id}/", templateHandler.Get)
				r.Put("/{id}/update/", templateHandler.Update)
				r.Post("/{id}/delete/", templateHandler.Delete)
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.List)
				r.Get("/analytics/overview/", userHandler.AnalyticsOverview)
				r.Get("/{uid}/", userHandler.Get)
				r.Post("/{uid}/disable/", userHandler.Disable)
				r.Post("/{uid}/enable/", userHandler.Enable)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireSuperAdmin())
					r.Post("/{uid}/delete/", userHandler.Delete)
				})
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/overview/", dashboardHandler.Overview)
				r.Get("/login-trends/", dashboardHandler.LoginTrends)
				r.Get("/voting-engagement/", dashboardHandler.VotingEngagement)
				r.Get("/subscription-trends/", dashboardHandler.SubscriptionTrends)
				r.Get("/recent-activity/", dashboardHandler.RecentActivity)
				r.Get("/performance-metrics/", dashboardHandler.PerformanceMetrics)
			})

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/closet/", analyticsHandler.Closet)
				r.Get("/polls/", analyticsHandler.Polls)
				r.Get("/top-outfits/", analyticsHandler.TopOutfits)
				r.Get("/ad-revenue/", analyticsHandler.AdRevenue)
				r.Get("/user-engagement/", analyticsHandler.UserEngagement)
			})

			r.Route("/content", func(r chi.Router) {
				r.Get("/flagged/", contentHandler.Flagged)
				r.Get("/{id}/details/", contentHandler.Details)
				r.Post("/{id}/approve/", contentHandler.Approve)
				r.Post("/{id}/remove/", contentHandler.Remove)
			})

			r.Route("/subscriptions", func(r chi.Router) {
				r.Get("/", subscriptionHandler.List)
				r.Get("/pricing/", subscriptionHandler.GetPricing)
				r.Put("/pricing/", subscriptionHandler.UpdatePricing)
				r.Get("/analytics/", subscriptionHandler.Analytics)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Post("/send/", notificationHandler.Send)
				r.Get("/history/", notificationHandler.History)
				r.Get("/templates/", notificationHandler.Templates)
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/feature-flags/", settingsHandler.GetFeatureFlags)
				r.Put("/feature-flags/", settingsHandler.UpdateFeatureFlag)
				r.Get("/thresholds/", settingsHandler.GetThresholds)
				r.Put("/thresholds/", settingsHandler.UpdateThreshold)
				r.Get("/status/", settingsHandler.Status)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireSuperAdmin())
					r.Post("/backup/", settingsHandler.Backup)
				})
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

// handleReadyz is a readiness probe. Returns 200 when the store and the
// directory are both reachable, or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	if err := s.store.Ping(r.Context()); err != nil {
		checks["store"] = "error: " + err.Error()
		status = "degraded"
	} else {
		checks["store"] = "ok"
	}
	if err := s.dir.Ping(r.Context()); err != nil {
		checks["directory"] = "error: " + err.Error()
		status = "degraded"
	} else {
		checks["directory"] = "ok"
	}

	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

// handleOpenAPI serves the generated API document. The document is static
// for the process lifetime, so it is built once and cached.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	s.specOnce.Do(func() {
		baseURL := fmt.Sprintf("http://%s:%d", s.cfg.Host, s.cfg.Port)
		s.specJSON, s.specErr = json.Marshal(openapi.GenerateSpec(baseURL, s.cfg.Version))
	})
	if s.specErr != nil {
		http.Error(w, "failed to generate spec: "+s.specErr.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(s.specJSON)
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before returning.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Listen for shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in background goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
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
