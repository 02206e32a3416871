package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/meract/pkg/db"
	"github.com/dmitrymomot/meract/pkg/redis"
)

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverPebble   = "pebble"
)

// Config selects and configures a driver. TTL is the default lifetime of
// entries stored without one; zero keeps them until removed.
type Config struct {
	Driver        string        `yaml:"driver" env:"STORAGE_DRIVER"`
	TTL           time.Duration `yaml:"ttl" env:"STORAGE_TTL"`
	SweepSchedule string        `yaml:"sweep_schedule" env:"STORAGE_SWEEP_SCHEDULE"`
	PebblePath    string        `yaml:"pebble_path" env:"STORAGE_PEBBLE_PATH"`
	MaxEntries    int           `yaml:"max_entries" env:"STORAGE_MAX_ENTRIES"`
	Redis         redis.Config  `yaml:"redis"`
	Postgres      db.Config     `yaml:"postgres"`
}

// Backend is an opened driver plus the resources it owns.
type Backend struct {
	Driver

	// Healthcheck pings the underlying store.
	Healthcheck func(context.Context) error

	closers []func() error
}

// Close releases the driver and any connections opened for it.
func (b *Backend) Close() error {
	errs := []error{b.Driver.Close()}
	for _, c := range b.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Open creates the driver named by cfg.Driver. For postgres it connects,
// runs the storage migration and owns the pool; for redis it owns the
// client.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	switch cfg.Driver {
	case "", DriverMemory:
		m := NewMemory(WithMaxEntries(cfg.MaxEntries))
		return &Backend{Driver: m, Healthcheck: m.Healthcheck}, nil

	case DriverRedis:
		client, err := redis.Open(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		d := NewRedis(client)
		return &Backend{
			Driver:      d,
			Healthcheck: d.Healthcheck,
			closers:     []func() error{client.Close},
		}, nil

	case DriverPostgres:
		pool, err := db.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := MigratePostgres(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
		d := NewPostgres(pool)
		return &Backend{
			Driver:      d,
			Healthcheck: d.Healthcheck,
			closers:     []func() error{closePool(pool)},
		}, nil

	case DriverPebble:
		d, err := OpenPebble(cfg.PebblePath)
		if err != nil {
			return nil, fmt.Errorf("storage: open pebble at %s: %w", cfg.PebblePath, err)
		}
		return &Backend{Driver: d, Healthcheck: d.Healthcheck}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func closePool(pool *pgxpool.Pool) func() error {
	return func() error {
		pool.Close()
		return nil
	}
}
