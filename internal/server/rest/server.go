// Package rest exposes the chat backend over HTTP/JSON.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/logging"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

func NewServer(address string, l logging.Logger, deps Deps) *Server {
	logger := l.With("module", "rest_server")
	deps.Logger = logger
	return &Server{
		address: address,
		handler: NewRouter(deps),
		logger:  logger,
	}
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
