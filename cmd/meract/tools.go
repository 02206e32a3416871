package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/meract/pkg/config"
	"github.com/dmitrymomot/meract/pkg/db"
	"github.com/dmitrymomot/meract/pkg/storage"
)

// errNotPostgres is returned by migrate for non-postgres storage.
var errNotPostgres = errors.New("migrate requires the postgres storage driver")

func newRoutesCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List registered routes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}

			// Listing needs no real storage or static root.
			listCfg := *cfg
			listCfg.Storage = storage.Config{Driver: storage.DriverMemory, SweepSchedule: cfg.Storage.SweepSchedule}
			listCfg.Static = config.StaticConfig{}

			a, err := newApp(contextOf(cmd), &listCfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = a.shutdown() }()

			return printRoutes(cmd.OutOrStdout(), a)
		},
	}
}

func printRoutes(w io.Writer, a *app) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tPATTERN\tNAME")
	for _, r := range a.router.Routes() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Method, r.Pattern, r.Name)
	}
	return tw.Flush()
}

func newMigrateCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply storage migrations to PostgreSQL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != storage.DriverPostgres {
				return fmt.Errorf("%w (driver is %q)", errNotPostgres, cfg.Storage.Driver)
			}

			ctx := contextOf(cmd)
			pool, err := db.Connect(ctx, cfg.Storage.Postgres)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := storage.MigratePostgres(ctx, pool, log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newSweepCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove expired storage entries once",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			cfg, log, err := load()
			if err != nil {
				return err
			}

			ctx := contextOf(cmd)
			backend, err := storage.Open(ctx, cfg.Storage, log)
			if err != nil {
				return err
			}
			defer func() {
				err = errors.Join(err, backend.Close())
			}()

			sweeper, err := storage.NewSweeper(backend, cfg.Storage.SweepSchedule, storage.WithSweepLogger(log))
			if err != nil {
				return err
			}
			n, err := sweeper.RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired entries\n", n)
			return nil
		},
	}
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
