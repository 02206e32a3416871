package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/meract"
	"github.com/dmitrymomot/meract/middlewares"
	"github.com/dmitrymomot/meract/pkg/config"
	"github.com/dmitrymomot/meract/pkg/cookie"
	"github.com/dmitrymomot/meract/pkg/health"
	"github.com/dmitrymomot/meract/pkg/logger"
	"github.com/dmitrymomot/meract/pkg/session"
	"github.com/dmitrymomot/meract/pkg/static"
	"github.com/dmitrymomot/meract/pkg/storage"
)

const sentryFlushTimeout = 2 * time.Second

// app is the example application: a router plus everything it owns.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	router   *meract.Router
	backend  *storage.Backend
	sweeper  *storage.Sweeper
	registry *prometheus.Registry
	metrics  *meract.Metrics
	closers  []func() error
}

// newApp opens storage, builds the middleware stack and registers routes.
// The socket server is attached separately by the serve command.
func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	backend, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		backend:  backend,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = meract.NewMetrics(a.registry)

	a.sweeper, err = storage.NewSweeper(backend, cfg.Storage.SweepSchedule, storage.WithSweepLogger(log))
	if err != nil {
		return nil, errors.Join(err, backend.Close())
	}

	sessions, err := newSessionManager(cfg, backend)
	if err != nil {
		return nil, errors.Join(err, backend.Close())
	}

	opts := []meract.Option{
		meract.WithLogger(log),
		meract.WithRequestLogger(meract.NewRequestLogger(log)),
		meract.WithMetrics(a.metrics),
	}
	resolver, err := newStaticResolver(cfg.Static)
	if err != nil {
		return nil, errors.Join(err, backend.Close())
	}
	if resolver != nil {
		opts = append(opts, meract.WithStatic(resolver))
		if c, ok := resolver.(interface{ Close() error }); ok {
			a.closers = append(a.closers, c.Close)
		}
	}

	mw := []meract.Middleware{
		middlewares.RequestID(),
		middlewares.Recover(middlewares.WithRecoverLogger(log)),
	}
	if cfg.RateLimit.RPS > 0 {
		mw = append(mw, middlewares.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
	mw = append(mw, middlewares.Session(sessions, middlewares.WithSessionLogger(log)))
	opts = append(opts, meract.WithMiddleware(mw...))

	a.router = meract.NewRouter(opts...)
	registerRoutes(a.router, backend, cfg.Storage.TTL)
	a.router.HealthRoutes("/health/live", "/health/ready", health.Checks{
		"storage": backend.Healthcheck,
	}, health.WithLogger(log))
	a.router.GET("/metrics", meract.WrapHTTP(a.metricsHandler())).Name("metrics")

	return a, nil
}

func newSessionManager(cfg *config.Config, driver storage.Driver) (*session.Manager, error) {
	opts := []session.Option{
		session.WithCookieName(cfg.Session.CookieName),
		session.WithTTL(cfg.Session.TTL),
		session.WithSecure(cfg.Session.Secure),
	}
	if cfg.Session.Secret != "" {
		signer, err := cookie.NewSigner(cfg.Session.Secret)
		if err != nil {
			return nil, fmt.Errorf("session signer: %w", err)
		}
		opts = append(opts, session.WithSigner(signer))
	}
	return session.NewManager(driver, opts...), nil
}

// newStaticResolver returns nil when static serving is not configured.
func newStaticResolver(cfg config.StaticConfig) (static.Resolver, error) {
	switch {
	case cfg.Root != "":
		d, err := static.NewDir(cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("static root %s: %w", cfg.Root, err)
		}
		return d, nil
	case cfg.S3.Bucket != "":
		s, err := static.NewS3(cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("static bucket %s: %w", cfg.S3.Bucket, err)
		}
		return s, nil
	}
	return nil, nil
}

func (a *app) metricsHandler() http.Handler {
	return promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})
}

// runOptions are the runtime options shared by every serve mode.
func (a *app) runOptions() []meract.RunOption {
	return []meract.RunOption{
		meract.Logger(a.log),
		meract.ShutdownTimeout(a.cfg.HTTP.ShutdownTimeout),
		meract.ShutdownHook(a.sweeper.Stop),
		meract.ShutdownHook(a.close),
		meract.ShutdownHook(logger.FlushSentry(sentryFlushTimeout)),
	}
}

// shutdown stops the sweeper and releases everything outside a runtime.
func (a *app) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return errors.Join(a.sweeper.Stop(ctx), a.close(ctx))
}

// close releases storage and the static root.
func (a *app) close(context.Context) error {
	errs := []error{a.backend.Close()}
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
