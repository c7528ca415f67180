package session

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type testDrivers struct {
	drv dialect.Driver
}

func (d testDrivers) Query() dialect.Driver    { return d.drv }
func (d testDrivers) Mutation() dialect.Driver { return d.drv }

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and shared
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	store := NewStore(testDrivers{drv: entsql.OpenDB(dialect.SQLite, db)}, opts...)
	require.NoError(t, store.Migrate(context.Background()))
	// Migrate is idempotent
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	store := newTestStore(t, WithClock(clock.Now), WithTTL(time.Hour))

	userID := uuid.New()
	created, err := store.Create(ctx, userID, "u1@example.com")
	require.NoError(t, err)

	loaded, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	assert.Equal(t, userID, loaded.UserID)
	assert.Equal(t, "u1@example.com", loaded.Email)
	assert.Equal(t, clock.now.Add(time.Hour).Unix(), loaded.ExpiresAt.Unix())
	assert.Equal(t, clock.now.Unix(), loaded.CreatedAt.Unix())
	assert.Nil(t, loaded.RevokedAt)
}

func TestStoreGetUnknown(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreActive(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	store := newTestStore(t, WithClock(clock.Now), WithTTL(time.Hour))

	created, err := store.Create(ctx, uuid.New(), "")
	require.NoError(t, err)

	t.Run("fresh session is active", func(t *testing.T) {
		_, err := store.Active(ctx, created.ID)
		assert.NoError(t, err)
	})

	t.Run("expired session is not found", func(t *testing.T) {
		clock.Advance(2 * time.Hour)
		defer clock.Advance(-2 * time.Hour)

		_, err := store.Active(ctx, created.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStoreRevoke(t *testing.T) {
	ctx := context.Background()
	var writes atomic.Int32
	store := newTestStore(t, WithWriteHook(func(ctx context.Context) error {
		writes.Add(1)
		return nil
	}))

	created, err := store.Create(ctx, uuid.New(), "")
	require.NoError(t, err)
	assert.Equal(t, int32(1), writes.Load())

	require.NoError(t, store.Revoke(ctx, created.ID))
	assert.Equal(t, int32(2), writes.Load())

	loaded, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.NotNil(t, loaded.RevokedAt)

	_, err = store.Active(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// second revoke finds nothing to update
	assert.ErrorIs(t, store.Revoke(ctx, created.ID), ErrNotFound)
	assert.ErrorIs(t, store.Revoke(ctx, uuid.New()), ErrNotFound)
	assert.Equal(t, int32(2), writes.Load())
}

func TestStoreWriteHookErrorDoesNotFailWrite(t *testing.T) {
	store := newTestStore(t, WithWriteHook(func(ctx context.Context) error {
		return errors.New("redis down")
	}))

	_, err := store.Create(context.Background(), uuid.New(), "")
	assert.NoError(t, err)
}

func TestTTLFromEnv(t *testing.T) {
	t.Setenv("SESSION_TTL", "2h")
	assert.Equal(t, 2*time.Hour, TTLFromEnv())

	t.Setenv("SESSION_TTL", "not a duration")
	assert.Equal(t, defaultSessionTTL, TTLFromEnv())
}
