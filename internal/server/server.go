package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mixtape-sh/mixtape/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers in the gateway.
// Implementations handle related endpoints (the MCP surface, OAuth callbacks).
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// shutdownGrace bounds how long shutdown waits for in-flight requests and
// session teardown.
const shutdownGrace = 10 * time.Second

// Server runs the tool endpoint: it owns the HTTP listener, the session
// registry sweeper, and graceful shutdown.
type Server struct {
	httpServer *http.Server
	registry   *Registry
	logger     *log.Logger
}

// ServerOpts configures a [Server].
type ServerOpts struct {
	Addr     string
	Handler  http.Handler
	Registry *Registry
	Logger   *log.Logger
}

// NewServer creates a server bound to opts.Addr.
func NewServer(opts ServerOpts) *Server {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           opts.Handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		registry: opts.Registry,
		logger:   opts.Logger,
	}
}

// Run serves until ctx is canceled, then shuts down gracefully: in-flight
// requests get the grace period to finish and every open session is closed
// within the same window before the listener is torn down.
func (s *Server) Run(ctx context.Context) error {
	if s.registry != nil {
		go s.registry.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	grace, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if s.registry != nil {
		closed := s.registry.CloseAll(grace)
		s.logger.Info("closed sessions for shutdown", "count", closed)
	}

	if err := s.httpServer.Shutdown(grace); err != nil {
		return err
	}

	s.logger.Info("server stopped")
	return nil
}
