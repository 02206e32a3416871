package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a driver backed by Redis. Expiry is native, so Sweep has
// nothing to do.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis creates a Redis driver. The client lifecycle stays with the
// caller (see pkg/redis.Open and pkg/redis.Shutdown).
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	// Redis treats a zero expiration as "keep forever".
	return r.client.Set(ctx, key, value, max(ttl, 0)).Err()
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) error {
	var (
		ok  bool
		err error
	)
	if ttl > 0 {
		ok, err = r.client.Expire(ctx, key, ttl).Result()
	} else {
		ok, err = r.client.Persist(ctx, key).Result()
		if err == nil && !ok {
			// PERSIST also answers 0 for keys without a TTL.
			var n int64
			n, err = r.client.Exists(ctx, key).Result()
			ok = n > 0
		}
	}
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (r *Redis) Sweep(context.Context) (int, error) {
	return 0, nil
}

// Healthcheck pings the server.
func (r *Redis) Healthcheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return errors.Join(ErrHealthcheck, err)
	}
	return nil
}

// Close is a no-op; the client is owned by the caller.
func (r *Redis) Close() error {
	return nil
}

var _ Driver = (*Redis)(nil)
