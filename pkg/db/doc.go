// Package db opens pgx connection pools and runs goose migrations.
//
// [Connect] retries until the database answers a ping. [Migrate] applies
// SQL migrations from any fs.FS, usually an embed.FS. [Healthcheck] and
// [Shutdown] plug into health checks and run options:
//
//	pool, err := db.Connect(ctx, db.Config{ConnectionString: os.Getenv("DATABASE_URL")})
//	if err != nil {
//		return err
//	}
//	if err := storage.MigratePostgres(ctx, pool, logger); err != nil {
//		return err
//	}
//	defer db.Shutdown(pool)(ctx)
package db
