package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(mr *miniredis.Miniredis) *Config {
	return &Config{
		Host:        mr.Host(),
		Port:        mr.Port(),
		PoolSize:    2,
		DialTimeout: time.Second,
		ReadTimeout: time.Second,
	}
}

func TestCacheServiceVersion(t *testing.T) {
	mr := miniredis.RunT(t)
	svc := NewCacheService(newTestConfig(mr))
	t.Cleanup(func() { _ = svc.Close() })

	require.NoError(t, svc.Available())
	require.NotNil(t, svc.GetClient())

	ctx := context.Background()
	version, err := svc.Version(ctx, "entcache:sessions:version")
	require.NoError(t, err)
	assert.Equal(t, int64(0), version)

	bumped, err := svc.BumpVersion(ctx, "entcache:sessions:version")
	require.NoError(t, err)
	assert.Equal(t, int64(1), bumped)

	version, err = svc.Version(ctx, "entcache:sessions:version")
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

func TestCacheServiceUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	config := newTestConfig(mr)
	mr.Close()

	svc := NewCacheService(config)
	t.Cleanup(func() { _ = svc.Close() })

	err = svc.Available()
	assert.True(t, IsUnavailable(err))
	assert.Nil(t, svc.GetClient())

	_, err = svc.Version(context.Background(), "key")
	assert.True(t, IsUnavailable(err))

	_, err = svc.BumpVersion(context.Background(), "key")
	assert.True(t, IsUnavailable(err))
}

func TestIsUnavailable(t *testing.T) {
	wrapped := &UnavailableError{Err: errors.New("dial tcp: refused")}
	assert.True(t, IsUnavailable(wrapped))
	assert.True(t, IsUnavailable(errors.Join(errors.New("outer"), wrapped)))
	assert.False(t, IsUnavailable(errors.New("cache miss")))
	assert.Contains(t, wrapped.Error(), "redis is unavailable")
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_DIAL_TIMEOUT", "bad")

	config := NewConfigFromEnv()
	assert.Equal(t, "cache", config.Host)
	assert.Equal(t, "6380", config.Port)
	assert.Equal(t, 2, config.DB)
	assert.Equal(t, 5*time.Second, config.DialTimeout)
}

func TestCloseCacheServiceWithoutInstance(t *testing.T) {
	assert.NoError(t, CloseCacheService())
}
