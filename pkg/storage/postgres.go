package storage

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/meract/pkg/db"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsTable = "meract_storage_migrations"

const (
	pgSet = `
INSERT INTO meract_storage (key, value, expires_at, updated_at)
VALUES ($1, $2, CASE WHEN $3::float8 > 0 THEN now() + make_interval(secs => $3::float8) END, now())
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, updated_at = now()`

	pgGet = `
SELECT value, expires_at IS NOT NULL AND expires_at <= now()
FROM meract_storage WHERE key = $1`

	pgDelete = `DELETE FROM meract_storage WHERE key = $1`

	pgDeleteExpired = `
DELETE FROM meract_storage
WHERE key = $1 AND expires_at IS NOT NULL AND expires_at <= now()`

	pgExpire = `
UPDATE meract_storage
SET expires_at = CASE WHEN $2::float8 > 0 THEN now() + make_interval(secs => $2::float8) END, updated_at = now()
WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`

	pgSweep = `DELETE FROM meract_storage WHERE expires_at IS NOT NULL AND expires_at <= now()`
)

// Postgres is a driver storing entries in the meract_storage table.
// Run MigratePostgres once before use.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres driver. The pool lifecycle stays with
// the caller (see pkg/db.Connect and pkg/db.Shutdown).
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// MigratePostgres creates or upgrades the storage table.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	return db.Migrate(ctx, pool, migrations, "migrations", migrationsTable, log)
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := p.pool.Exec(ctx, pgSet, key, value, ttl.Seconds())
	return err
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		value   []byte
		expired bool
	)
	if err := p.pool.QueryRow(ctx, pgGet, key).Scan(&value, &expired); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if expired {
		if _, err := p.pool.Exec(ctx, pgDeleteExpired, key); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return value, nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	_, err := p.pool.Exec(ctx, pgDelete, key)
	return err
}

func (p *Postgres) Expire(ctx context.Context, key string, ttl time.Duration) error {
	tag, err := p.pool.Exec(ctx, pgExpire, key, ttl.Seconds())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Sweep(ctx context.Context) (int, error) {
	tag, err := p.pool.Exec(ctx, pgSweep)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// Healthcheck pings the database.
func (p *Postgres) Healthcheck(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return errors.Join(ErrHealthcheck, err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (p *Postgres) Close() error {
	return nil
}

var _ Driver = (*Postgres)(nil)
