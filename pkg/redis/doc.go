// Package redis opens go-redis clients from a Config, with startup retries,
// a health check and a shutdown hook.
//
// The storage package uses it for the "redis" driver:
//
//	client, err := redis.Open(ctx, redis.Config{URL: "redis://localhost:6379/0"})
//	if err != nil {
//		return err
//	}
//	driver := storage.NewRedis(client)
//
// Errors wrap one of [ErrEmptyConnectionURL], [ErrFailedToParseURL],
// [ErrConnectionFailed] or [ErrHealthcheckFailed].
package redis
