// Package api wires the HTTP handlers, the signal stream and the metrics
// endpoint into one server.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/wonny/phasescan/pkg/logger"
)

const (
	// scanWriteTimeout bounds POST /api/scan, which scores the universe inline
	scanWriteTimeout = 10 * time.Minute
	shutdownTimeout  = 30 * time.Second
)

// Server serves the router until its context is cancelled
type Server struct {
	http   *http.Server
	logger *logger.Logger
}

// NewServer creates a server listening on addr, e.g. ":8089"
func NewServer(addr string, router http.Handler, log *logger.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      scanWriteTimeout,
			IdleTimeout:       60 * time.Second,
		},
		logger: log.WithField("addr", addr),
	}
}

// Run listens and serves. When ctx is done it drains in-flight requests for
// up to shutdownTimeout and returns nil.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.http.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.http.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API server listening")
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
