package storage_test

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meract/pkg/db"
	"github.com/dmitrymomot/meract/pkg/redis"
	"github.com/dmitrymomot/meract/pkg/storage"
)

// driverCase describes a driver under the shared driver tests.
type driverCase struct {
	name string
	open func(t *testing.T) storage.Driver
	// sweeps is false for drivers whose store expires keys natively.
	sweeps bool
}

func driverCases() []driverCase {
	return []driverCase{
		{
			name:   "memory",
			sweeps: true,
			open: func(t *testing.T) storage.Driver {
				m := storage.NewMemory()
				t.Cleanup(func() { _ = m.Close() })
				return m
			},
		},
		{
			name:   "pebble",
			sweeps: true,
			open: func(t *testing.T) storage.Driver {
				p, err := storage.OpenPebble(t.TempDir())
				require.NoError(t, err)
				t.Cleanup(func() { _ = p.Close() })
				return p
			},
		},
		{
			name: "redis",
			open: func(t *testing.T) storage.Driver {
				url := os.Getenv("REDIS_URL")
				if url == "" {
					t.Skip("REDIS_URL not set")
				}
				client, err := redis.Open(context.Background(), redis.Config{URL: url})
				require.NoError(t, err)
				t.Cleanup(func() { _ = client.Close() })
				return storage.NewRedis(client)
			},
		},
		{
			name:   "postgres",
			sweeps: true,
			open: func(t *testing.T) storage.Driver {
				url := os.Getenv("DATABASE_URL")
				if url == "" {
					t.Skip("DATABASE_URL not set")
				}
				ctx := context.Background()
				pool, err := db.Connect(ctx, db.Config{ConnectionString: url})
				require.NoError(t, err)
				t.Cleanup(pool.Close)
				require.NoError(t, storage.MigratePostgres(ctx, pool, nil))
				return storage.NewPostgres(pool)
			},
		},
	}
}

func TestDrivers(t *testing.T) {
	t.Parallel()

	for _, dc := range driverCases() {
		t.Run(dc.name, func(t *testing.T) {
			t.Parallel()

			d := dc.open(t)
			ctx := context.Background()
			// Keys are unique per run so shared servers stay isolated.
			key := func(name string) string { return uuid.NewString() + ":" + name }

			t.Run("set get delete", func(t *testing.T) {
				k := key("k")
				require.NoError(t, d.Set(ctx, k, []byte("v1"), time.Minute))
				require.NoError(t, d.Set(ctx, k, []byte("v2"), time.Minute))

				v, err := d.Get(ctx, k)
				require.NoError(t, err)
				require.Equal(t, "v2", string(v))

				require.NoError(t, d.Delete(ctx, k))
				_, err = d.Get(ctx, k)
				require.ErrorIs(t, err, storage.ErrNotFound)
				require.NoError(t, d.Delete(ctx, k))
			})

			t.Run("missing key", func(t *testing.T) {
				_, err := d.Get(ctx, key("missing"))
				require.ErrorIs(t, err, storage.ErrNotFound)
				require.ErrorIs(t, d.Expire(ctx, key("missing"), time.Minute), storage.ErrNotFound)
			})

			t.Run("expiry", func(t *testing.T) {
				short, forever := key("short"), key("forever")
				require.NoError(t, d.Set(ctx, short, []byte("v"), 200*time.Millisecond))
				require.NoError(t, d.Set(ctx, forever, []byte("v"), 0))
				time.Sleep(500 * time.Millisecond)

				_, err := d.Get(ctx, short)
				require.ErrorIs(t, err, storage.ErrNotFound)
				_, err = d.Get(ctx, forever)
				require.NoError(t, err)
			})

			t.Run("expire extends and persists", func(t *testing.T) {
				extended, persisted := key("extended"), key("persisted")
				require.NoError(t, d.Set(ctx, extended, []byte("v"), 200*time.Millisecond))
				require.NoError(t, d.Set(ctx, persisted, []byte("v"), 200*time.Millisecond))
				require.NoError(t, d.Expire(ctx, extended, time.Minute))
				require.NoError(t, d.Expire(ctx, persisted, 0))
				time.Sleep(500 * time.Millisecond)

				_, err := d.Get(ctx, extended)
				require.NoError(t, err)
				_, err = d.Get(ctx, persisted)
				require.NoError(t, err)
			})

			t.Run("sweep", func(t *testing.T) {
				stale, live := key("stale"), key("live")
				require.NoError(t, d.Set(ctx, stale, []byte("v"), 200*time.Millisecond))
				require.NoError(t, d.Set(ctx, live, []byte("v"), time.Minute))
				time.Sleep(500 * time.Millisecond)

				n, err := d.Sweep(ctx)
				require.NoError(t, err)
				if dc.sweeps {
					require.GreaterOrEqual(t, n, 1)
				} else {
					require.Zero(t, n)
				}

				_, err = d.Get(ctx, stale)
				require.ErrorIs(t, err, storage.ErrNotFound)
				_, err = d.Get(ctx, live)
				require.NoError(t, err)
			})
		})
	}
}

func TestPebble_GetKeepsConcurrentWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := newClock()

	var (
		p        *storage.Pebble
		armed    atomic.Bool
		setErr   error
		finished = make(chan struct{})
	)
	// Once armed, the next clock read (Get checking expiry) starts a
	// concurrent Set of the same key and gives it a moment to land.
	now := func() time.Time {
		if armed.CompareAndSwap(true, false) {
			go func() {
				setErr = p.Set(ctx, "k", []byte("fresh"), time.Hour)
				close(finished)
			}()
			select {
			case <-finished:
			case <-time.After(50 * time.Millisecond):
			}
		}
		return clk.Now()
	}

	var err error
	p, err = storage.OpenPebble(t.TempDir(), storage.WithPebbleClock(now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	require.NoError(t, p.Set(ctx, "k", []byte("stale"), time.Minute))
	clk.Advance(2 * time.Minute)

	armed.Store(true)
	_, err = p.Get(ctx, "k")
	require.ErrorIs(t, err, storage.ErrNotFound)

	<-finished
	require.NoError(t, setErr)

	v, err := p.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "fresh", string(v))
}

func TestPebble_Closed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p, err := storage.OpenPebble(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	require.ErrorIs(t, p.Set(ctx, "k", []byte("v"), 0), storage.ErrClosed)
	_, err = p.Get(ctx, "k")
	require.ErrorIs(t, err, storage.ErrClosed)
	require.ErrorIs(t, p.Delete(ctx, "k"), storage.ErrClosed)
	require.ErrorIs(t, p.Expire(ctx, "k", time.Minute), storage.ErrClosed)
	_, err = p.Sweep(ctx)
	require.ErrorIs(t, err, storage.ErrClosed)
	require.ErrorIs(t, p.Healthcheck(ctx), storage.ErrClosed)
}
