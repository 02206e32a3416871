package internal

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/valyala/fasthttp"
)

const (
	defaultAddress           = ":8000"
	defaultShutdownTimeout   = 30 * time.Second
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 15 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20
)

// RunSocket runs the router in push mode on its attached socket server until
// SIGINT or SIGTERM, then runs shutdown hooks.
func RunSocket(r *Router, opts ...RunOption) error {
	cfg := buildRunConfig(opts...)
	if r.server == nil {
		return ErrServerNotSet
	}

	ctx, cancel := signal.NotifyContext(cfg.baseCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := r.StartHandling(ctx, func(s *Server) {
		cfg.logger.Info("socket server starting", slog.String("address", s.Addr().String()))
	})

	cfg.logger.Info("shutting down socket server")
	return finishShutdown(cfg, err)
}

// HTTPHandler mounts the router behind chi for use under net/http.
// X-Forwarded-For is honoured for the remote address and GET /ping answers
// a liveness check without touching the router.
func HTTPHandler(r *Router) http.Handler {
	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Heartbeat("/ping"))
	mux.Handle("/*", r)
	return mux
}

// RunHTTP runs the router in pull mode under net/http until SIGINT or
// SIGTERM, then shuts down gracefully.
func RunHTTP(r *Router, opts ...RunOption) error {
	cfg := buildRunConfig(opts...)

	server := &http.Server{
		Addr:              cfg.address,
		Handler:           HTTPHandler(r),
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
	}

	ctx, cancel := signal.NotifyContext(cfg.baseCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return errors.Join(ErrBind, err)
	}

	errCh := make(chan error, 1)
	go func() {
		cfg.logger.Info("http server starting", slog.String("address", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	cfg.logger.Info("shutting down http server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
	defer shutdownCancel()

	return finishShutdown(cfg, server.Shutdown(shutdownCtx))
}

// RunFastHTTP runs the router in pull mode under fasthttp until SIGINT or
// SIGTERM, then shuts down gracefully.
func RunFastHTTP(r *Router, opts ...RunOption) error {
	cfg := buildRunConfig(opts...)

	server := &fasthttp.Server{
		Handler:            r.FastHTTPHandler(),
		Name:               "meract",
		ReadTimeout:        defaultReadTimeout,
		WriteTimeout:       defaultWriteTimeout,
		IdleTimeout:        defaultIdleTimeout,
		MaxRequestBodySize: maxAmbientBody,
	}

	ctx, cancel := signal.NotifyContext(cfg.baseCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ln, err := net.Listen("tcp", cfg.address)
	if err != nil {
		return errors.Join(ErrBind, err)
	}

	errCh := make(chan error, 1)
	go func() {
		cfg.logger.Info("fasthttp server starting", slog.String("address", ln.Addr().String()))
		if err := server.Serve(ln); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	cfg.logger.Info("shutting down fasthttp server")
	return finishShutdown(cfg, server.Shutdown())
}

// finishShutdown runs shutdown hooks and joins their errors with stopErr.
func finishShutdown(cfg *runConfig, stopErr error) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
	defer cancel()

	var errs []error
	if stopErr != nil {
		errs = append(errs, stopErr)
	}

	for _, hook := range cfg.shutdownHooks {
		if err := hook(shutdownCtx); err != nil {
			errs = append(errs, err)
			cfg.logger.Error("shutdown hook failed", slog.Any("error", err))
		}
	}

	if len(errs) > 0 {
		cfg.logger.Error("shutdown completed with errors")
		return errors.Join(errs...)
	}

	cfg.logger.Info("shutdown completed")
	return nil
}
