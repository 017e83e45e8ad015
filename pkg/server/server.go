// Package server exposes the advisor over HTTP: a WebSocket endpoint bound
// to the session coordinator and the static chat page.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/entrhq/pcbuilder/pkg/logging"
	"github.com/entrhq/pcbuilder/pkg/session"
)

const (
	// WebSocketPath is where clients open their chat connection.
	WebSocketPath = "/ws"

	defaultShutdownTimeout = 10 * time.Second
	maxFrameBytes          = 64 << 10
)

// Options configures a Server.
type Options struct {
	Addr        string
	StaticDir   string
	Coordinator *session.Coordinator

	// OriginPatterns are host patterns allowed to open the WebSocket. Empty
	// means same-origin only.
	OriginPatterns []string

	ShutdownTimeout time.Duration
	Logger          *logging.Logger
}

// Server serves the chat page and the WebSocket endpoint.
type Server struct {
	opts   Options
	coord  *session.Coordinator
	router chi.Router
	logger *logging.Logger
}

// New creates a server and builds its routes.
func New(opts Options) *Server {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.MustLogger("server")
	}

	s := &Server{
		opts:   opts,
		coord:  opts.Coordinator,
		logger: opts.Logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.RequestLogger(&chiMiddleware.DefaultLogFormatter{
		Logger:  log.New(s.logger.Writer(), "", 0),
		NoColor: true,
	}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Get(WebSocketPath, s.handleWebSocket)

	if s.opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.opts.StaticDir)))
	}
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then tears down the active
// session and shuts the listener down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("server running at http://localhost%s", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Infof("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	// Hijacked WebSocket connections are not closed by http.Server, so the
	// session goes first.
	if err := s.coord.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnf("session shutdown: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Infof("server closed")
	return nil
}
