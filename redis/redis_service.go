package redis

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"api/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	initialReconnectInterval = 5 * time.Second // Начальный интервал для переподключения
	maxReconnectInterval     = 5 * time.Minute // Максимальный интервал для переподключения
	reconnectMultiplier      = 2               // Множитель для экспоненциального backoff
)

var errNoClient = errors.New("redis client is nil")

// UnavailableError represents an error when Redis is unavailable
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("redis is unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable checks if the error is an UnavailableError
func IsUnavailable(err error) bool {
	var target *UnavailableError
	return errors.As(err, &target)
}

// Config stores Redis configuration parameters
type Config struct {
	Host            string
	Port            string
	Password        string
	DB              int
	PoolSize        int
	MinIdleConns    int
	MaxRetries      int
	MinRetryBackoff time.Duration
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PoolTimeout     time.Duration
	IdleTimeout     time.Duration
	MaxConnAge      time.Duration
}

// NewConfigFromEnv creates Redis configuration from environment variables
func NewConfigFromEnv() *Config {
	return &Config{
		Host:            getEnvWithDefault("REDIS_HOST", "localhost"),
		Port:            getEnvWithDefault("REDIS_PORT", "6379"),
		Password:        os.Getenv("REDIS_PASSWORD"),
		DB:              getEnvInt("REDIS_DB", 0),
		PoolSize:        getEnvInt("REDIS_POOL_SIZE", 10),
		MinIdleConns:    getEnvInt("REDIS_MIN_IDLE_CONNS", 5),
		MaxRetries:      getEnvInt("REDIS_MAX_RETRIES", 3),
		MinRetryBackoff: getEnvDuration("REDIS_RETRY_BACKOFF", 100*time.Millisecond),
		DialTimeout:     getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:     getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout:    getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		PoolTimeout:     getEnvDuration("REDIS_POOL_TIMEOUT", 4*time.Second),
		IdleTimeout:     getEnvDuration("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		MaxConnAge:      getEnvDuration("REDIS_MAX_CONN_AGE", 0),
	}
}

// CacheService owns the shared Redis client. A background loop keeps it
// healthy and reconnects with exponential backoff when Redis goes away.
type CacheService struct {
	client       *redis.Client
	config       *Config
	mu           sync.RWMutex
	healthCtx    context.Context
	healthCancel context.CancelFunc
	wg           sync.WaitGroup
}

var (
	instance *CacheService
	once     sync.Once
	started  atomic.Bool
)

// GetCacheService returns the process-wide CacheService configured from the environment.
// The service is returned together with an *UnavailableError while Redis is down.
func GetCacheService() (*CacheService, error) {
	once.Do(func() {
		instance = NewCacheService(NewConfigFromEnv())
		started.Store(true)
	})
	return instance, instance.Available()
}

// CloseCacheService closes the process-wide CacheService if GetCacheService created it
func CloseCacheService() error {
	if !started.Load() {
		return nil
	}
	return instance.Close()
}

// NewCacheService connects to Redis and starts the health check loop.
// A failed initial connection is retried by the loop.
func NewCacheService(config *Config) *CacheService {
	s := &CacheService{config: config}
	s.healthCtx, s.healthCancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go s.healthCheckLoop()

	if client, err := newRedisClient(config); err == nil {
		s.setClient(client)
	}
	return s
}

// Available returns nil when a healthy client is connected
func (s *CacheService) Available() error {
	if s.getClient() == nil {
		return &UnavailableError{Err: errNoClient}
	}
	return nil
}

func (s *CacheService) healthCheckLoop() {
	defer s.wg.Done()

	// Инициализируем генератор случайных чисел с уникальным seed
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	currentInterval := initialReconnectInterval
	ticker := time.NewTicker(currentInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if client := s.getClient(); client == nil {
				utils.Logger.Debug("Attempting to reconnect to Redis",
					zap.Duration("interval", currentInterval))

				if newClient, err := newRedisClient(s.config); err == nil {
					s.setClient(newClient)
					utils.Logger.Info("Successfully reconnected to Redis")

					// Сбрасываем интервал после успешного подключения
					currentInterval = initialReconnectInterval
					ticker.Reset(currentInterval)
				} else {
					utils.Logger.Debug("Failed to reconnect to Redis", zap.Error(err))

					currentInterval = time.Duration(float64(currentInterval) * reconnectMultiplier)
					if currentInterval > maxReconnectInterval {
						currentInterval = maxReconnectInterval
					}

					// Добавляем джиттер ±10% к интервалу
					jitter := time.Duration(rnd.Int63n(int64(currentInterval/5))) - currentInterval/10
					nextInterval := currentInterval + jitter

					utils.Logger.Debug("Next reconnect with jitter",
						zap.Duration("base_interval", currentInterval),
						zap.Duration("jitter", jitter),
						zap.Duration("next_interval", nextInterval))

					ticker.Reset(nextInterval)
				}
			} else {
				// Проверяем работоспособность существующего соединения
				ctx, cancel := context.WithTimeout(s.healthCtx, 2*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					utils.Logger.Warn("Redis connection is unhealthy, closing and will attempt to reconnect",
						zap.Error(err))
					client.Close()
					s.setClient(nil)

					currentInterval = initialReconnectInterval
					ticker.Reset(currentInterval)
				}
				cancel()
			}
		case <-s.healthCtx.Done():
			utils.Logger.Debug("Redis health check loop stopped")
			return
		}
	}
}

func (s *CacheService) setClient(client *redis.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = client
}

func (s *CacheService) getClient() *redis.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client
}

// GetClient returns the current client or nil while Redis is unavailable
func (s *CacheService) GetClient() *redis.Client {
	return s.getClient()
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// newRedisClient creates new Redis client instance
func newRedisClient(config *Config) (*redis.Client, error) {
	utils.Logger.Debug("Initializing Redis connection",
		zap.String("host", config.Host),
		zap.String("port", config.Port),
		zap.String("password_set", map[bool]string{true: "yes", false: "no"}[config.Password != ""]),
	)

	opts := &redis.Options{
		Addr: fmt.Sprintf("%s:%s", config.Host, config.Port),
		DB:   config.DB,
	}

	// Добавляем пароль только если он указан
	if config.Password != "" {
		opts.Password = config.Password
	}

	opts.PoolSize = config.PoolSize
	opts.MinIdleConns = config.MinIdleConns
	opts.MaxRetries = config.MaxRetries
	opts.MinRetryBackoff = config.MinRetryBackoff
	opts.DialTimeout = config.DialTimeout
	opts.ReadTimeout = config.ReadTimeout
	opts.WriteTimeout = config.WriteTimeout
	opts.PoolTimeout = config.PoolTimeout
	opts.IdleTimeout = config.IdleTimeout
	opts.MaxConnAge = config.MaxConnAge

	utils.Logger.Debug("Redis connection options",
		zap.Int("db", opts.DB),
		zap.Int("pool_size", opts.PoolSize),
		zap.Int("max_retries", opts.MaxRetries),
		zap.Duration("dial_timeout", opts.DialTimeout),
	)

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		utils.Logger.Warn("Redis is not available",
			zap.Error(err),
			zap.String("host", config.Host),
			zap.String("port", config.Port),
		)
		return nil, fmt.Errorf("failed to connect to Redis at %s:%s: %w", config.Host, config.Port, err)
	}

	utils.Logger.Info("Successfully connected to Redis",
		zap.String("host", config.Host),
		zap.String("port", config.Port),
		zap.Int("db", opts.DB),
		zap.Int("pool_size", opts.PoolSize),
	)

	return client, nil
}

// Version returns the counter stored under key, or 0 when it was never bumped
func (s *CacheService) Version(ctx context.Context, key string) (int64, error) {
	client := s.getClient()
	if client == nil {
		return 0, &UnavailableError{Err: errNoClient}
	}

	version, err := client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, &UnavailableError{Err: err}
	}
	return version, nil
}

// BumpVersion increments the counter stored under key
func (s *CacheService) BumpVersion(ctx context.Context, key string) (int64, error) {
	client := s.getClient()
	if client == nil {
		return 0, &UnavailableError{Err: errNoClient}
	}

	version, err := client.Incr(ctx, key).Result()
	if err != nil {
		utils.Logger.Warn("Failed to bump cache version",
			zap.Error(err),
			zap.String("key", key),
		)
		return 0, &UnavailableError{Err: err}
	}

	utils.Logger.Debug("Cache version bumped",
		zap.String("key", key),
		zap.Int64("version", version),
	)
	return version, nil
}

// Close closes Redis connection and stops the health check
func (s *CacheService) Close() error {
	if s.healthCancel != nil {
		s.healthCancel()
	}

	// Дожидаемся завершения горутины мониторинга
	s.wg.Wait()

	client := s.getClient()
	if client == nil {
		return nil
	}
	return client.Close()
}
