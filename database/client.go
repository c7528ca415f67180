package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"time"

	"api/redis"
	"api/utils"

	"ariga.io/entcache"
	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"

	defaultCacheScope = "global"
)

// Config holds database configuration
type Config struct {
	// Driver selects the database/sql driver: pgx (default) or postgres (lib/pq)
	Driver string

	// Connection endpoints
	QueryDSN    string // Read-only endpoint for queries
	MutationDSN string // Write endpoint for mutations

	Debug bool

	// Cache settings for the query driver
	EnableCache bool
	CacheTTL    time.Duration
	CacheScope  string
}

// Client holds the query and mutation drivers
type Client struct {
	query    dialect.Driver
	mutation dialect.Driver
	cache    *redis.CacheService
	config   *Config
}

// GetConfigFromEnv creates config from environment variables
func GetConfigFromEnv() *Config {
	user := getEnv("DB_USER", "postgres")
	password := os.Getenv("DB_PASSWORD")
	dbName := getEnv("DB_NAME", "postgres")
	sslMode := getEnv("DB_SSLMODE", "disable")
	schema := getEnv("DB_SCHEMA", "public")

	queryHost := getEnv("DB_QUERY_HOST", "localhost")
	queryPort := getEnv("DB_QUERY_PORT", "5432")
	mutationHost := getEnv("DB_MUTATION_HOST", "localhost")
	mutationPort := getEnv("DB_MUTATION_PORT", "5432")

	enableCache := true // По умолчанию включаем кэш
	if value := os.Getenv("ENABLE_DB_CACHE"); value != "" {
		enableCache, _ = strconv.ParseBool(value)
	}

	cacheTTL := 5 * time.Minute // Значение по умолчанию
	if ttlStr := os.Getenv("DB_CACHE_TTL"); ttlStr != "" {
		if ttlSec, err := strconv.Atoi(ttlStr); err == nil {
			cacheTTL = time.Duration(ttlSec) * time.Second
		}
	}

	dsn := func(host, port string) string {
		return fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=%s&search_path=%s",
			user, password, host, port, dbName, sslMode, schema,
		)
	}

	return &Config{
		Driver:      getEnv("DB_DRIVER", DriverPgx),
		QueryDSN:    dsn(queryHost, queryPort),
		MutationDSN: dsn(mutationHost, mutationPort),
		Debug:       IsDebugDB(),
		EnableCache: enableCache,
		CacheTTL:    cacheTTL,
		CacheScope:  defaultCacheScope,
	}
}

// NewClient opens the query and mutation connections
func NewClient(ctx context.Context, config *Config) (*Client, error) {
	if config == nil {
		config = GetConfigFromEnv()
	}

	query, err := openDriver(ctx, config, config.QueryDSN, "query")
	if err != nil {
		return nil, fmt.Errorf("failed to create query client: %w", err)
	}

	mutation, err := openDriver(ctx, config, config.MutationDSN, "mutation")
	if err != nil {
		_ = query.Close()
		return nil, fmt.Errorf("failed to create mutation client: %w", err)
	}

	var cache *redis.CacheService
	if config.EnableCache {
		svc, err := redis.GetCacheService()
		if err != nil {
			utils.Logger.Warn("Redis cache service unavailable, using context-level cache only",
				zap.Error(err),
			)
		}
		cache = svc
	}

	client := NewClientFromDrivers(query, mutation, cache, config)

	utils.Logger.Info("Database clients created successfully",
		zap.String("driver", config.Driver),
		zap.Bool("debug", config.Debug),
		zap.Bool("cache", config.EnableCache),
	)

	return client, nil
}

// NewClientFromDrivers builds a client over already opened drivers. When caching
// is enabled the query driver is wrapped with entcache; cache may be nil.
func NewClientFromDrivers(query, mutation dialect.Driver, cache *redis.CacheService, config *Config) *Client {
	if config == nil {
		config = &Config{}
	}
	if config.CacheScope == "" {
		config.CacheScope = defaultCacheScope
	}

	client := &Client{
		query:    query,
		mutation: mutation,
		cache:    cache,
		config:   config,
	}

	if config.EnableCache {
		cacheOpts := []entcache.Option{
			entcache.TTL(config.CacheTTL),
			entcache.ContextLevel(),
		}
		if cache != nil {
			cacheOpts = append(cacheOpts, entcache.Levels(NewVersionedRedisLevel(cache, config.CacheScope)))
			utils.Logger.Info("Redis cache level enabled for query client",
				zap.Duration("ttl", config.CacheTTL),
				zap.String("scope", config.CacheScope),
			)
		}
		client.query = entcache.NewDriver(query, cacheOpts...)
	}

	return client
}

// openDriver opens a single connection pool and wraps it in an ent driver
func openDriver(ctx context.Context, config *Config, dsn, clientType string) (dialect.Driver, error) {
	var db *sql.DB
	switch config.Driver {
	case DriverPostgres:
		connector, err := pq.NewConnector(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s connection config: %w", clientType, err)
		}
		db = sql.OpenDB(connector)
	case DriverPgx, "":
		connConfig, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s connection config: %w", clientType, err)
		}
		db = stdlib.OpenDB(*connConfig)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	// Pool settings for an external proxy (PgBouncer/pgpool)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", clientType, err)
	}

	var drv dialect.Driver = entsql.OpenDB(dialect.Postgres, db)
	if config.Debug {
		drv = dialect.DebugWithContext(drv, func(ctx context.Context, args ...any) {
			utils.Logger.Debug("SQL",
				zap.String("client", clientType),
				zap.String("query", fmt.Sprint(args...)),
			)
		})
	}

	utils.Logger.Debug("Created database driver",
		zap.String("type", clientType),
		zap.String("driver", config.Driver),
		zap.Bool("debug", config.Debug),
	)

	return drv, nil
}

// Query returns the read driver
func (c *Client) Query() dialect.Driver {
	return c.query
}

// Mutation returns the write driver
func (c *Client) Mutation() dialect.Driver {
	return c.mutation
}

// InvalidateCache drops every cached read of the client's scope.
// Without Redis there is nothing shared to invalidate. A configured but
// unreachable Redis is reported, since its entries may outlive the outage.
func (c *Client) InvalidateCache(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	if err := c.cache.Available(); err != nil {
		return err
	}
	return bumpScopeVersion(ctx, c.cache, c.config.CacheScope)
}

// Close closes both database connections
func (c *Client) Close() error {
	var result *multierror.Error

	if c.query != nil {
		if err := c.query.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close query client: %w", err))
		}
	}

	if c.mutation != nil {
		if err := c.mutation.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close mutation client: %w", err))
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	utils.Logger.Info("Database clients closed successfully")
	return nil
}

// WithTx runs a function within a transaction on the mutation driver
func (c *Client) WithTx(ctx context.Context, fn func(tx dialect.Tx) error) error {
	tx, err := c.mutation.Tx(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()

	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = fmt.Errorf("%w: rolling back transaction: %v", err, rerr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// EnableContextCache creates context with enabled context-level caching
// Used for GraphQL queries to avoid duplicate queries within single request
func EnableContextCache(ctx context.Context) context.Context {
	return entcache.NewContext(ctx)
}

// SkipCache creates context that skips caching (for migrations and mutations)
func SkipCache(ctx context.Context) context.Context {
	return entcache.Skip(ctx)
}

// IsDebugDB returns true if database debug mode is enabled
func IsDebugDB() bool {
	debug, _ := strconv.ParseBool(os.Getenv("DEBUG_DB"))
	return debug
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
