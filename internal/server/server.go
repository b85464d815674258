// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It decides:
//   - which concrete client backs each service (GoTrue, OMDb, PostgREST or Postgres)
//   - which URL patterns map to which handler functions
//   - what middleware runs on which routes
//   - how the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config
//	  ├─ http.Client (10s timeout, shared by every outbound call)
//	  ├─ gotrue.Client ─┐
//	  ├─ sqlite.DB ─────┼─ SessionService ─┬─ AuthHandler
//	  ├─ notify.Notifier┘                  └─ auth.LoadState
//	  ├─ omdb.Client ───── SearchService, FeaturedService
//	  └─ postgrest.Store | postgres.Store ── WatchlistService
//
// This is the "composition root" pattern: every dependency is built here and
// nowhere else.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/movie-watchlist/internal/auth"
	"github.com/sakif/movie-watchlist/internal/config"
	"github.com/sakif/movie-watchlist/internal/gotrue"
	"github.com/sakif/movie-watchlist/internal/handler"
	"github.com/sakif/movie-watchlist/internal/middleware"
	"github.com/sakif/movie-watchlist/internal/notify"
	"github.com/sakif/movie-watchlist/internal/omdb"
	"github.com/sakif/movie-watchlist/internal/render"
	"github.com/sakif/movie-watchlist/internal/repository"
	"github.com/sakif/movie-watchlist/internal/repository/postgres"
	"github.com/sakif/movie-watchlist/internal/repository/postgrest"
	sqliteRepo "github.com/sakif/movie-watchlist/internal/repository/sqlite"
	"github.com/sakif/movie-watchlist/internal/service"
)

const (
	outboundTimeout = 10 * time.Second
	shutdownTimeout = 30 * time.Second

	// Cached sessions untouched for longer than the cookie lives are dead.
	sessionIdleLimit = 30 * 24 * time.Hour
	purgeInterval    = time.Hour
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the session database, the optional Postgres pool and the
// notifier. Close releases all three; Start calls it on the way out.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	sessions *sqliteRepo.DB
	notifier *notify.Notifier
	closers  []io.Closer
	unsub    func()
}

// New builds every dependency from cfg and wires the routes.
//
// cfg.SessionSecret must be set; main generates one when the environment
// does not provide it.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}
	sealer, err := auth.NewSealer(cfg.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("creating sealer: %w", err)
	}

	// === CREATE DATABASE ===
	db, err := sqliteRepo.New(cfg.SessionDBPath, sealer)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		sessions: db,
		notifier: notify.New(logger),
		closers:  []io.Closer{db},
	}

	client := &http.Client{Timeout: outboundTimeout}

	watchlistRepo, err := s.watchlistStore(ctx, client)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.unsub = s.notifier.Subscribe(func(ev notify.Event) {
		logger.Info("auth state changed",
			slog.String("kind", string(ev.Kind)),
			slog.String("visitor_id", ev.VisitorID),
			slog.String("session_id", ev.SessionID),
		)
	})

	if err := s.setupRoutes(cfg, client, tokens, watchlistRepo); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// watchlistStore picks the watchlist backend. DATABASE_URL selects a direct
// Postgres connection; otherwise the table is reached over PostgREST with
// the user's own access token.
func (s *Server) watchlistStore(ctx context.Context, client *http.Client) (repository.WatchlistRepository, error) {
	if s.config.DatabaseURL == "" {
		s.logger.Info("watchlist backend", slog.String("kind", "postgrest"))
		return postgrest.New(s.config.SupabaseURL, s.config.SupabaseAnonKey, client), nil
	}

	store, err := postgres.Open(ctx, s.config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening watchlist database: %w", err)
	}
	s.closers = append(s.closers, store)
	s.logger.Info("watchlist backend", slog.String("kind", "postgres"))
	return store, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /                  → page (HTML)
// GET    /static/*          → static files
// GET    /healthz           → liveness (JSON)
// POST   /auth/login        → sign in, 303 → /
// POST   /auth/register     → sign up, 303 → /
// POST   /auth/resend       → resend confirmation, 303 → /
// POST   /auth/logout       → sign out, 303 → /
// POST   /auth/confirm      → confirmation hand-off (JSON)
// GET    /auth/session      → auth state (JSON)
// GET    /search?q=         → results fragment, 204 when stale
// GET    /featured          → featured fragment, 204 when signed in
// GET    /events            → websocket of auth-state changes
// GET    /watchlist         → watchlist fragment       [session]
// POST   /watchlist         → add, watchlist fragment  [session]
// DELETE /watchlist/{id}    → remove, watchlist fragment [session]
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID, RealIP, Recoverer (chi)
// 2. Logger: one line per request
// 3. LoadState: only on routes that need the visitor, not on static files
func (s *Server) setupRoutes(cfg config.Config, client *http.Client, tokens *auth.TokenService, watchlistRepo repository.WatchlistRepository) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	fileServer := http.FileServer(http.Dir(cfg.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	s.router.Get("/healthz", handler.HandleHealth)

	renderer, err := render.New()
	if err != nil {
		return err
	}

	// === SERVICES ===
	provider := gotrue.New(cfg.SupabaseURL, cfg.SupabaseAnonKey, client)
	movies := omdb.New(cfg.OMDbBaseURL, cfg.OMDbAPIKey, client)

	claims := auth.NewAccessTokenParser(cfg.SupabaseJWTSecret)
	if !claims.Verifies() {
		s.logger.Info("SUPABASE_JWT_SECRET not set; confirmation tokens are checked with the provider only")
	}

	sessionService := service.NewSessionService(provider, s.sessions, s.notifier, claims, cfg.SiteURL, s.logger)
	searchService := service.NewSearchService(movies, service.NewTracker(), s.logger)
	watchlistService := service.NewWatchlistService(watchlistRepo, s.logger)
	featuredService := service.NewFeaturedService(movies, nil, s.logger)

	// === HANDLERS ===
	cookies := auth.NewCookies(tokens, secureSite(cfg.SiteURL))

	pageHandler := handler.NewPageHandler(renderer, watchlistService, s.logger)
	authHandler := handler.NewAuthHandler(sessionService, cookies, s.logger)
	searchHandler := handler.NewSearchHandler(searchService, renderer, s.logger)
	watchlistHandler := handler.NewWatchlistHandler(watchlistService, renderer, s.logger)
	featuredHandler := handler.NewFeaturedHandler(featuredService, renderer, s.logger)
	eventsHandler := handler.NewEventsHandler(s.notifier, s.logger)

	s.router.Group(func(r chi.Router) {
		r.Use(auth.LoadState(cookies, sessionService, s.logger))

		r.Get("/", pageHandler.HandleIndex)
		r.Get("/search", searchHandler.HandleSearch)
		r.Get("/featured", featuredHandler.HandleFeatured)
		r.Get("/events", eventsHandler.HandleEvents)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/resend", authHandler.HandleResend)
			r.Post("/logout", authHandler.HandleLogout)
			r.Post("/confirm", authHandler.HandleConfirm)
			r.Get("/session", authHandler.HandleSession)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireSession)
			r.Get("/watchlist", watchlistHandler.HandleList)
			r.Post("/watchlist", watchlistHandler.HandleAdd)
			r.Delete("/watchlist/{id}", watchlistHandler.HandleRemove)
		})
	})

	return nil
}

// Handler returns the root handler. Tests drive it through httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully:
//  1. stop accepting new connections
//  2. wait up to 30s for in-flight requests
//  3. close the notifier and the databases
func (s *Server) Start(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go s.purgeLoop(ctx)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", s.config.SiteURL),
			slog.String("session_db", s.config.SessionDBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// Close releases everything New opened. It is safe to call more than once.
func (s *Server) Close() {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	s.notifier.Close()
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.logger.Warn("closing resource", slog.String("error", err.Error()))
		}
	}
	s.closers = nil
}

// purgeLoop drops cached sessions idle longer than the session cookie lives.
func (s *Server) purgeLoop(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		n, err := s.sessions.PurgeIdle(ctx, time.Now().Add(-sessionIdleLimit))
		switch {
		case err != nil && ctx.Err() == nil:
			s.logger.Warn("purging idle sessions", slog.String("error", err.Error()))
		case n > 0:
			s.logger.Info("purged idle sessions", slog.Int64("count", n))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func secureSite(siteURL string) bool {
	u, err := url.Parse(siteURL)
	return err == nil && u.Scheme == "https"
}
