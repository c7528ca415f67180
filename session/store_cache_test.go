package session

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"api/database"
	"api/redis"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCachedTestStore builds a store over a database client whose query
// driver is cached in Redis, the way the server wires it
func newCachedTestStore(t *testing.T) (*Store, *miniredis.Miniredis, func() []error) {
	t.Helper()

	mr := miniredis.RunT(t)
	cache := redis.NewCacheService(&redis.Config{
		Host:        mr.Host(),
		Port:        mr.Port(),
		DialTimeout: time.Second,
	})
	t.Cleanup(func() { _ = cache.Close() })
	require.NoError(t, cache.Available())

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	drv := entsql.OpenDB(dialect.SQLite, db)
	client := database.NewClientFromDrivers(drv, drv, cache, &database.Config{
		EnableCache: true,
		CacheTTL:    time.Minute,
		CacheScope:  "sessions",
	})

	var (
		mu       sync.Mutex
		hookErrs []error
	)
	store := NewStore(client, WithWriteHook(func(ctx context.Context) error {
		err := client.InvalidateCache(ctx)
		mu.Lock()
		hookErrs = append(hookErrs, err)
		mu.Unlock()
		return err
	}))
	require.NoError(t, store.Migrate(context.Background()))

	return store, mr, func() []error {
		mu.Lock()
		defer mu.Unlock()
		return append([]error(nil), hookErrs...)
	}
}

func TestRevokedSessionIsInactiveWhenInvalidationFails(t *testing.T) {
	ctx := context.Background()
	store, mr, hookErrs := newCachedTestStore(t)

	created, err := store.Create(ctx, uuid.New(), "u1@example.com")
	require.NoError(t, err)

	// authenticate a few times so any cacheable read is cached
	for i := 0; i < 3; i++ {
		_, err := store.Active(ctx, created.ID)
		require.NoError(t, err)
	}

	mr.SetError("LOADING Redis is loading the dataset in memory")
	require.NoError(t, store.Revoke(ctx, created.ID))
	mr.SetError("")

	errs := hookErrs()
	require.Len(t, errs, 2)
	assert.NoError(t, errs[0])
	assert.Error(t, errs[1])

	_, err = store.Active(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevokedSessionIsInactiveWithCachedClient(t *testing.T) {
	ctx := context.Background()
	store, _, hookErrs := newCachedTestStore(t)

	created, err := store.Create(ctx, uuid.New(), "")
	require.NoError(t, err)

	_, err = store.Active(ctx, created.ID)
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, created.ID))
	for _, err := range hookErrs() {
		assert.NoError(t, err)
	}

	_, err = store.Active(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// revoking again still sees the revoked row
	assert.ErrorIs(t, store.Revoke(ctx, created.ID), ErrNotFound)
}
