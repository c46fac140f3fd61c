// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware,
// and routes, and decides:
//   - which URL patterns map to which handler functions
//   - what middleware runs on which routes
//   - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go builds the external collaborators (database, token verifier,
// object store, mailer) and passes them in as Deps. New builds everything
// that only depends on those:
//
//	Deps → services → handlers → routes
//
// This is the "composition root" pattern: all dependencies are wired in one
// place rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/photolog/internal/auth"
	"github.com/sakif/photolog/internal/handler"
	"github.com/sakif/photolog/internal/middleware"
	"github.com/sakif/photolog/internal/notify"
	sqliteRepo "github.com/sakif/photolog/internal/repository/sqlite"
	"github.com/sakif/photolog/internal/service"
	"github.com/sakif/photolog/internal/storage"
)

// Config holds server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	FrontendURL string
	AdminEmails []string
}

// Deps are the collaborators that talk to the outside world.
type Deps struct {
	DB        *sqliteRepo.DB
	Verifier  auth.Verifier
	Assets    storage.Uploader
	Notifier  notify.Notifier
	Passwords service.PasswordHasher
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it after the
// listener has drained so pending writes are flushed and the file lock is
// released.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New wires services and handlers onto a fresh router.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.DB == nil || deps.Verifier == nil || deps.Assets == nil || deps.Notifier == nil || deps.Passwords == nil {
		return nil, errors.New("server: every dependency is required")
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     deps.DB,
	}
	s.setupRoutes(deps)
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /, /health                          → health check
//	POST   /auth/{signup,signin,refresh,...}    → token exchange (public)
//	POST   /admin/auth/{signin,refresh,signout} → admin token exchange
//	GET    /me ...                              → profile (auth)
//	*      /events ...                          → host event + photo management (auth)
//	*      /public/events/{slug} ...            → visitor access (no auth)
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns a unique ID to each request
//  2. RealIP: extracts the client IP from proxy headers
//  3. Logger: logs each request with its request ID and timing
//  4. Recoverer: turns panics into 500s
//  5. CORS: answers preflights before any auth runs
func (s *Server) setupRoutes(deps Deps) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// === Services ===
	quota := service.NewQuotaService(deps.DB)
	users := service.NewUserService(deps.DB, quota, deps.Assets, s.logger)
	events := service.NewEventService(deps.DB, deps.DB, quota, deps.Assets, deps.Passwords, s.config.FrontendURL, s.logger)
	photos := service.NewPhotoService(events, deps.DB, quota, deps.Assets, deps.Notifier, s.logger)
	public := service.NewPublicService(deps.DB, deps.DB, deps.Assets, deps.Passwords, s.logger)

	// === Handlers ===
	admins := auth.NewAdminList(s.config.AdminEmails)
	healthHandler := handler.NewHealthHandler(deps.DB, s.logger)
	authHandler := handler.NewAuthHandler(deps.Verifier, users, admins, s.logger)
	profileHandler := handler.NewProfileHandler(users, quota, deps.Verifier, s.logger)
	eventHandler := handler.NewEventHandler(events, s.logger)
	photoHandler := handler.NewPhotoHandler(photos, s.logger)
	publicHandler := handler.NewPublicHandler(public, s.logger)

	requireAuth := auth.RequireAuth(deps.Verifier, s.logger)
	resolveUser := handler.ResolveUser(users, s.logger)

	s.router.Get("/", healthHandler.HandleHealth)
	s.router.Get("/health", healthHandler.HandleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/signin", authHandler.HandleSignin)
		r.Post("/refresh", authHandler.HandleRefresh)
		r.Post("/signout", authHandler.HandleSignout)
		r.Post("/resend-verification", authHandler.HandleResendVerification)
		r.Post("/forgot-password", authHandler.HandleForgotPassword)
		r.Post("/verify-email", authHandler.HandleVerifyEmail)
		r.Post("/reset-password", authHandler.HandleResetPassword)
	})

	s.router.Route("/admin/auth", func(r chi.Router) {
		r.Post("/signin", authHandler.HandleAdminSignin)
		r.Post("/signout", authHandler.HandleSignout)
		r.With(requireAuth, authHandler.RequireAdmin).Post("/refresh", authHandler.HandleAdminRefresh)
	})

	s.router.Route("/me", func(r chi.Router) {
		r.Use(requireAuth, resolveUser)
		r.Get("/", profileHandler.HandleGet)
		r.Patch("/", profileHandler.HandleUpdate)
		r.Patch("/password", profileHandler.HandleChangePassword)
		r.Post("/avatar", profileHandler.HandleUploadAvatar)
		r.Get("/storage", profileHandler.HandleStorage)
	})

	s.router.Route("/events", func(r chi.Router) {
		r.Use(requireAuth, resolveUser)
		r.Post("/", eventHandler.HandleCreate)
		r.Get("/", eventHandler.HandleList)
		r.Post("/actions/bulk", eventHandler.HandleBulk)

		r.Route("/{eventID}", func(r chi.Router) {
			r.Get("/", eventHandler.HandleGet)
			r.Patch("/", eventHandler.HandleUpdate)
			r.Delete("/", eventHandler.HandleDelete)
			r.Post("/cover", eventHandler.HandleUploadCover)
			r.Get("/qr", eventHandler.HandleQRCode)
			r.Post("/download", eventHandler.HandleDownload)

			r.Get("/photos", photoHandler.HandleList)
			r.Post("/photos", photoHandler.HandleUpload)
			r.Post("/photos/bulk-delete", photoHandler.HandleBulkDelete)
			r.Post("/photos/bulk-download", photoHandler.HandleBulkDownload)
			r.Get("/photos/{photoID}", photoHandler.HandleGet)
			r.Patch("/photos/{photoID}", photoHandler.HandleUpdate)
			r.Delete("/photos/{photoID}", photoHandler.HandleDelete)
		})
	})

	s.router.Route("/public/events/{slug}", func(r chi.Router) {
		r.Get("/", publicHandler.HandleGetEvent)
		r.Get("/photos", publicHandler.HandleListPhotos)
		r.Post("/photos", publicHandler.HandleUpload)
		r.Post("/verify-password", publicHandler.HandleVerifyPassword)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not Found","status_code":404}`))
	})
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM or a
// listener failure.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	// Uploads of large covers need more than the usual 15s to arrive.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
