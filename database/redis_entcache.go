package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"api/redis"
	"api/utils"

	"ariga.io/entcache"
	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const defaultEntryTTL = 5 * time.Minute

var (
	prefixOnce          sync.Once
	redisCacheKeyPrefix string
)

// getCacheKeyPrefix isolates cache keys per service
func getCacheKeyPrefix() string {
	prefixOnce.Do(func() {
		serviceName := os.Getenv("APP_SERVICE_NAME")
		if serviceName == "" {
			serviceName = "default"
		}
		redisCacheKeyPrefix = fmt.Sprintf("entcache:v3:service:%s:", serviceName)
	})
	return redisCacheKeyPrefix
}

// versionedRedisLevel implements entcache.AddGetDeleter on top of the shared
// Redis client. Every key embeds the current scope version, so bumping the
// version drops all cached reads of the scope at once.
type versionedRedisLevel struct {
	cache *redis.CacheService
	scope string
}

// NewVersionedRedisLevel creates a Redis cache level for the given scope
func NewVersionedRedisLevel(cache *redis.CacheService, scope string) entcache.AddGetDeleter {
	return &versionedRedisLevel{cache: cache, scope: scope}
}

func versionKey(scope string) string {
	return fmt.Sprintf("%sscope:%s:version", getCacheKeyPrefix(), scope)
}

func (l *versionedRedisLevel) buildVersionedKey(ctx context.Context, key entcache.Key) (string, error) {
	version, err := l.cache.Version(ctx, versionKey(l.scope))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%sscope:%s:v%d:%v", getCacheKeyPrefix(), l.scope, version, key), nil
}

// Add stores entry in Redis with TTL
func (l *versionedRedisLevel) Add(ctx context.Context, key entcache.Key, entry *entcache.Entry, ttl time.Duration) error {
	client := l.cache.GetClient()
	if client == nil {
		return nil
	}
	versionedKey, err := l.buildVersionedKey(ctx, key)
	if err != nil {
		return err
	}
	data, err := entry.MarshalBinary()
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = defaultEntryTTL
	}
	return client.Set(ctx, versionedKey, data, ttl).Err()
}

// Get retrieves entry from Redis. An unavailable Redis reads as a cache miss.
func (l *versionedRedisLevel) Get(ctx context.Context, key entcache.Key) (*entcache.Entry, error) {
	client := l.cache.GetClient()
	if client == nil {
		return nil, entcache.ErrNotFound
	}
	versionedKey, err := l.buildVersionedKey(ctx, key)
	if err != nil {
		if redis.IsUnavailable(err) {
			return nil, entcache.ErrNotFound
		}
		return nil, err
	}
	data, err := client.Get(ctx, versionedKey).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, entcache.ErrNotFound
		}
		return nil, err
	}
	entry := &entcache.Entry{}
	if err := entry.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return entry, nil
}

// Del deletes entry from Redis
func (l *versionedRedisLevel) Del(ctx context.Context, key entcache.Key) error {
	client := l.cache.GetClient()
	if client == nil {
		return nil
	}
	versionedKey, err := l.buildVersionedKey(ctx, key)
	if err != nil {
		return err
	}
	return client.Del(ctx, versionedKey).Err()
}

// bumpScopeVersion invalidates every cached read of the scope
func bumpScopeVersion(ctx context.Context, cache *redis.CacheService, scope string) error {
	if _, err := cache.BumpVersion(ctx, versionKey(scope)); err != nil {
		utils.Logger.Error("Failed to increment cache version",
			zap.Error(err),
			zap.String("scope", scope),
		)
		return err
	}
	return nil
}
