package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"api/redis"

	"ariga.io/entcache"
	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDriver(t *testing.T) dialect.Driver {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	drv := entsql.OpenDB(dialect.SQLite, db)
	require.NoError(t, drv.Exec(context.Background(), "CREATE TABLE items (name TEXT NOT NULL)", []any{}, nil))
	return drv
}

func newTestCache(t *testing.T) (*redis.CacheService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	cache := redis.NewCacheService(&redis.Config{
		Host:        mr.Host(),
		Port:        mr.Port(),
		DialTimeout: time.Second,
	})
	t.Cleanup(func() { _ = cache.Close() })
	require.NoError(t, cache.Available())
	return cache, mr
}

func countItems(t *testing.T, drv dialect.Driver) int {
	t.Helper()

	var rows entsql.Rows
	require.NoError(t, drv.Query(context.Background(), "SELECT COUNT(*) FROM items", []any{}, &rows))
	defer rows.Close()

	count, err := entsql.ScanInt(rows)
	require.NoError(t, err)
	return count
}

func TestWithTx(t *testing.T) {
	drv := openTestDriver(t)
	client := NewClientFromDrivers(drv, drv, nil, nil)
	ctx := context.Background()

	err := client.WithTx(ctx, func(tx dialect.Tx) error {
		return tx.Exec(ctx, "INSERT INTO items (name) VALUES (?)", []any{"committed"}, nil)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countItems(t, client.Query()))

	failure := errors.New("boom")
	err = client.WithTx(ctx, func(tx dialect.Tx) error {
		if err := tx.Exec(ctx, "INSERT INTO items (name) VALUES (?)", []any{"rolled back"}, nil); err != nil {
			return err
		}
		return failure
	})
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 1, countItems(t, client.Query()))
}

func TestNewClientFromDriversWrapsQueryDriver(t *testing.T) {
	drv := openTestDriver(t)

	plain := NewClientFromDrivers(drv, drv, nil, &Config{})
	assert.Same(t, drv, plain.Query())

	cached := NewClientFromDrivers(drv, drv, nil, &Config{EnableCache: true, CacheTTL: time.Minute})
	_, ok := cached.Query().(*entcache.Driver)
	assert.True(t, ok)
	assert.Same(t, drv, cached.Mutation())
	assert.Equal(t, 0, countItems(t, cached.Query()))
}

func TestInvalidateCacheWithoutRedis(t *testing.T) {
	drv := openTestDriver(t)
	client := NewClientFromDrivers(drv, drv, nil, &Config{EnableCache: true})

	assert.NoError(t, client.InvalidateCache(context.Background()))
}

func TestInvalidateCacheReportsRedisFailure(t *testing.T) {
	cache, mr := newTestCache(t)
	drv := openTestDriver(t)
	client := NewClientFromDrivers(drv, drv, cache, &Config{EnableCache: true, CacheScope: "sessions"})

	mr.SetError("LOADING Redis is loading the dataset in memory")
	defer mr.SetError("")

	err := client.InvalidateCache(context.Background())
	require.Error(t, err)
	assert.True(t, redis.IsUnavailable(err))
}

func TestVersionedRedisLevel(t *testing.T) {
	cache, _ := newTestCache(t)
	level := NewVersionedRedisLevel(cache, "sessions")
	ctx := context.Background()

	_, err := level.Get(ctx, "select-1")
	assert.ErrorIs(t, err, entcache.ErrNotFound)

	require.NoError(t, level.Add(ctx, "select-1", &entcache.Entry{}, time.Minute))
	entry, err := level.Get(ctx, "select-1")
	require.NoError(t, err)
	assert.NotNil(t, entry)

	require.NoError(t, level.Del(ctx, "select-1"))
	_, err = level.Get(ctx, "select-1")
	assert.ErrorIs(t, err, entcache.ErrNotFound)
}

func TestInvalidateCacheBumpsScopeVersion(t *testing.T) {
	cache, mr := newTestCache(t)
	drv := openTestDriver(t)
	client := NewClientFromDrivers(drv, drv, cache, &Config{EnableCache: true, CacheScope: "sessions"})
	level := NewVersionedRedisLevel(cache, "sessions")
	other := NewVersionedRedisLevel(cache, "other")
	ctx := context.Background()

	require.NoError(t, level.Add(ctx, "select-1", &entcache.Entry{}, time.Minute))
	require.NoError(t, other.Add(ctx, "select-1", &entcache.Entry{}, time.Minute))

	require.NoError(t, client.InvalidateCache(ctx))

	version, err := mr.Get(versionKey("sessions"))
	require.NoError(t, err)
	assert.Equal(t, "1", version)

	_, err = level.Get(ctx, "select-1")
	assert.ErrorIs(t, err, entcache.ErrNotFound)

	_, err = other.Get(ctx, "select-1")
	assert.NoError(t, err)
}

func TestVersionedRedisLevelDegradesWhenRedisIsDown(t *testing.T) {
	cache, mr := newTestCache(t)
	level := NewVersionedRedisLevel(cache, "sessions")
	mr.Close()

	_, err := level.Get(context.Background(), "select-1")
	assert.ErrorIs(t, err, entcache.ErrNotFound)
}

func TestGetConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_QUERY_HOST", "replica")
	t.Setenv("DB_MUTATION_HOST", "primary")
	t.Setenv("ENABLE_DB_CACHE", "false")
	t.Setenv("DB_CACHE_TTL", "60")

	config := GetConfigFromEnv()
	assert.Equal(t, DriverPgx, config.Driver)
	assert.Contains(t, config.QueryDSN, "@replica:5432/")
	assert.Contains(t, config.MutationDSN, "@primary:5432/")
	assert.False(t, config.EnableCache)
	assert.Equal(t, time.Minute, config.CacheTTL)
	assert.Equal(t, defaultCacheScope, config.CacheScope)
}

func TestOpenDriverRejectsUnknownDriver(t *testing.T) {
	_, err := openDriver(context.Background(), &Config{Driver: "mysql"}, "", "query")
	assert.Error(t, err)
}
