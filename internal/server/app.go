package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5/middleware"
)

// ShutdownTimeout bounds how long in-flight requests get to finish on shutdown.
const ShutdownTimeout = 10 * time.Second

// Options configures a [Server].
type Options struct {
	Addr             string
	Jukebox          Jukebox
	Auth             Authenticator
	History          History
	AdminPassword    string
	RedirectURI      string
	EnqueuePerMinute int
	Logger           *log.Logger
}

// Server is the jukebox HTTP server.
type Server struct {
	router *ChiRouter
	http   *http.Server
	logger *log.Logger
}

// New builds the router with every route and its middleware.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	router := NewChiRouter()
	router.Use(middleware.RequestID, middleware.RealIP, RequestLogger(logger), middleware.Recoverer)

	api := NewAPIHandler(opts.Jukebox, opts.Auth, opts.History, logger)
	router.Handle(http.MethodGet, "/healthz", http.HandlerFunc(Health))
	router.Handler(NewOAuthHandler(opts.Auth, opts.RedirectURI, logger))

	router.Handle(http.MethodPost, "/api/spotify/token", http.HandlerFunc(api.Token))
	router.Handle(http.MethodGet, "/api/spotify/status", http.HandlerFunc(api.Status))
	router.Handle(http.MethodGet, "/api/spotify/queue", http.HandlerFunc(api.Queue))
	router.Handle(http.MethodGet, "/api/spotify/now-playing", http.HandlerFunc(api.NowPlaying))
	router.Handle(http.MethodGet, "/api/spotify/search", http.HandlerFunc(api.Search))
	router.Handle(http.MethodGet, "/api/spotify/history", http.HandlerFunc(api.History))

	router.Group(func(r Router) {
		r.Handle(http.MethodPost, "/api/spotify/queue", http.HandlerFunc(api.Enqueue))
	}, RateLimit(opts.EnqueuePerMinute))

	router.Group(func(r Router) {
		r.Handle(http.MethodDelete, "/api/spotify/queue", http.HandlerFunc(api.Remove))
		r.Handle(http.MethodPost, "/api/spotify/control", http.HandlerFunc(api.Control))
	}, AdminOnly(opts.AdminPassword))

	return &Server{
		router: router,
		logger: logger,
		http: &http.Server{
			Addr:         opts.Addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("jukebox listening", "addr", "http://"+s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}
