// Package storage is a typed key/value store with TTLs, used for sessions
// and other short-lived state.
//
// A [Storage] encodes values (JSON by default) and delegates persistence to
// a [Driver]:
//
//   - [Memory]: in-process, LRU-capped, optional background janitor
//   - [Redis]: native expiry through go-redis
//   - [Postgres]: the meract_storage table, created by [MigratePostgres]
//   - [Pebble]: embedded on-disk store
//
// [Open] builds a driver from [Config]. Drivers without native expiry drop
// stale entries on access; a [Sweeper] clears the rest on a cron schedule:
//
//	backend, err := storage.Open(ctx, storage.Config{Driver: "memory"}, logger)
//	if err != nil {
//		return err
//	}
//	defer backend.Close()
//
//	sweeper, err := storage.NewSweeper(backend, "@every 1m", storage.WithSweepLogger(logger))
//	if err != nil {
//		return err
//	}
//	sweeper.Start()
//	defer sweeper.Stop(ctx)
//
//	sessions := storage.New[map[string]string](backend, nil, storage.WithPrefix("sessions"))
package storage
