package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/meract/pkg/db"
)

// An expired read followed by a late delete must not remove a value that
// was written in between.
func TestPostgres_LateExpiredDeleteKeepsFreshValue(t *testing.T) {
	t.Parallel()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, db.Config{ConnectionString: url})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, MigratePostgres(ctx, pool, nil))

	p := NewPostgres(pool)
	key := uuid.NewString()

	require.NoError(t, p.Set(ctx, key, []byte("stale"), 100*time.Millisecond))
	time.Sleep(300 * time.Millisecond)

	var expired bool
	require.NoError(t, pool.QueryRow(ctx, pgGet, key).Scan(new([]byte), &expired))
	require.True(t, expired)

	require.NoError(t, p.Set(ctx, key, []byte("fresh"), time.Hour))
	_, err = pool.Exec(ctx, pgDeleteExpired, key)
	require.NoError(t, err)

	v, err := p.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "fresh", string(v))
}
