package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/meract"
	"github.com/dmitrymomot/meract/pkg/config"
)

func newServeCmd(load loader) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the example application in the configured mode",
		Long: `Serve the example application. server.mode (MERACT_MODE) selects the
raw socket server (socket, the default), net/http (http) or fasthttp.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			return serve(contextOf(cmd), cfg, log, cfg.Server.Mode, metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "also expose /metrics on a separate net/http listener")
	return cmd
}

func newHTTPCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "http",
		Short: "Serve the example application under net/http",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			return serve(contextOf(cmd), cfg, log, config.ModeHTTP, "")
		},
	}
}

func newFastHTTPCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "fasthttp",
		Short: "Serve the example application under fasthttp",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			return serve(contextOf(cmd), cfg, log, config.ModeFastHTTP, "")
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *slog.Logger, mode, metricsAddr string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	a.sweeper.Start()

	g, gctx := errgroup.WithContext(ctx)
	opts := append(a.runOptions(), meract.WithContext(gctx))

	g.Go(func() error {
		defer stop()

		var err error
		switch mode {
		case config.ModeHTTP:
			err = meract.RunHTTP(a.router, append(opts, meract.Address(cfg.HTTP.Address))...)
		case config.ModeFastHTTP:
			err = meract.RunFastHTTP(a.router, append(opts, meract.Address(cfg.HTTP.Address))...)
		default:
			if err = a.attachServer(); err == nil {
				return meract.RunSocket(a.router, opts...)
			}
		}
		if errors.Is(err, meract.ErrBind) {
			// Nothing was served, so the shutdown hooks never ran.
			return errors.Join(err, a.shutdown())
		}
		return err
	})

	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           a.metricsHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("metrics server starting", slog.String("address", metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// attachServer binds the raw socket server from the server config.
func (a *app) attachServer() error {
	srv, err := meract.NewServer(a.cfg.Server.Host, a.cfg.Server.Port,
		meract.WithBufferSize(a.cfg.Server.BufferSize),
		meract.WithReadTimeout(a.cfg.Server.ReadTimeout),
		meract.WithServerLogger(a.log),
		meract.WithServerMetrics(a.metrics),
	)
	if err != nil {
		return err
	}
	a.router.SetServer(srv)
	return nil
}
