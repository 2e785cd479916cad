// Package server runs a binary's HTTP API next to its gRPC health service and
// shuts both down when the context ends.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/ecommerce-orders/internal/pkg/config"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/health"
)

// Run serves handler on cfg.HTTPAddr and, when cfg.GRPCAddr is set, the
// health service. It blocks until ctx is done or a server fails.
func Run(ctx context.Context, cfg config.ServiceConfig, handler http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(handler, cfg.Name),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)

	var hs *health.Server
	if cfg.GRPCAddr != "" {
		hs = health.NewServer(cfg.Name, log)
		go func() {
			if err := hs.Serve(ctx, cfg.GRPCAddr); err != nil {
				errCh <- err
			}
		}()
	}

	go func() {
		log.Info("HTTP server running", "service", cfg.Name, "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received", "service", cfg.Name)
	case runErr = <-errCh:
		log.Error("server failed", "service", cfg.Name, "error", runErr)
	}

	if hs != nil {
		hs.SetServing(false)
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Join(runErr, fmt.Errorf("http shutdown: %w", err))
	}
	return runErr
}
