// Package server wires handlers, middleware, and routes, and owns the HTTP
// server lifecycle.
//
// This is the composition root: every dependency — database, signer,
// services, handlers — is constructed here in one place, in dependency
// order, and nothing else in the codebase constructs anything.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/notes-api/internal/auth"
	"github.com/sakif/notes-api/internal/config"
	"github.com/sakif/notes-api/internal/handler"
	"github.com/sakif/notes-api/internal/mail"
	"github.com/sakif/notes-api/internal/middleware"
	sqliteRepo "github.com/sakif/notes-api/internal/repository/sqlite"
	"github.com/sakif/notes-api/internal/service"
)

// Server holds the router and the resources it owns. The database
// connection is closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server: opens the database, builds the full service graph,
// and mounts the routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes builds the dependency graph and mounts every route.
//
// ROUTE MAP:
//
//	GET  /health                          liveness probe
//	POST /users/register                  create account
//	POST /users/login                     credentials → token pair
//	POST /users/refresh_token             refresh token → fresh pair
//	POST /users/send_activation_code      re-mail activation code
//	GET  /users/activate/{code}           consume activation code
//	GET  /users/email_exists/{email}      registration lookup
//	POST /users/facebook_connect          Facebook token → token pair
//	POST /users/google_connect            Google ID token → token pair
//	POST /users/logout            [auth]  revoke presented access token
//	POST /users/change_password   [auth]  rotate password, kill sessions
//	POST /notes                   [auth]  create note
//	GET  /notes                   [auth]  list own notes
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === Build the service graph ===
	signer, err := auth.NewSigner(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating signer: %w", err)
	}
	passwords := auth.NewPasswordService()

	var mailer mail.Mailer
	if s.config.SMTPHost != "" {
		mailer, err = mail.NewSMTPMailer(
			s.config.SMTPHost,
			s.config.SMTPPort,
			s.config.SMTPUsername,
			s.config.SMTPPassword,
			s.config.MailFrom,
		)
		if err != nil {
			return fmt.Errorf("creating mailer: %w", err)
		}
	} else {
		s.logger.Warn("SMTP_HOST not set — activation mail will be logged, not delivered")
		mailer = mail.NewLogMailer(s.logger)
	}

	tokens := service.NewTokenService(
		s.db, signer,
		s.config.AccessTokenLifetime,
		s.config.RefreshTokenLifetime,
		s.logger,
	)
	activations := service.NewActivationService(
		s.db, mailer,
		s.config.ActivationLifetime,
		s.config.BaseURL,
		s.logger,
	)
	accounts := service.NewAccountService(s.db, passwords, tokens, activations, s.logger)
	connect := service.NewConnectService(s.db, tokens, s.logger)
	notes := service.NewNoteService(s.db, s.logger)

	accountHandler := handler.NewAccountHandler(
		accounts, tokens, connect,
		auth.NewFacebookProvider(),
		auth.NewGoogleProvider(s.config.GoogleClientID),
		s.logger,
	)
	noteHandler := handler.NewNoteHandler(notes, s.logger)

	requireAuth := auth.RequireAuth(tokens)

	// === Mount routes ===
	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Route("/users", func(r chi.Router) {
		r.Post("/register", accountHandler.HandleRegister)
		r.Post("/login", accountHandler.HandleLogin)
		r.Post("/refresh_token", accountHandler.HandleRefreshToken)
		r.Post("/send_activation_code", accountHandler.HandleSendActivationCode)
		r.Get("/activate/{code}", accountHandler.HandleActivate)
		r.Get("/email_exists/{email}", accountHandler.HandleEmailExists)
		r.Post("/facebook_connect", accountHandler.HandleFacebookConnect)
		r.Post("/google_connect", accountHandler.HandleGoogleConnect)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/logout", accountHandler.HandleLogout)
			r.Post("/change_password", accountHandler.HandleChangePassword)
		})
	})

	s.router.Route("/notes", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", noteHandler.HandleCreate)
		r.Get("/", noteHandler.HandleList)
	})

	return nil
}

// Router exposes the chi mux, mainly for tests that drive the full stack
// through httptest without opening a socket.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30
// seconds, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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
