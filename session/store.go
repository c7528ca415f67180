package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"api/utils"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	tableName         = "sessions"
	defaultSessionTTL = 30 * 24 * time.Hour
)

var columns = []string{"id", "user_id", "email", "expires_at", "revoked_at", "created_at"}

// ErrNotFound is returned when a session does not exist, is revoked or has expired
var ErrNotFound = errors.New("session not found")

// Session is a revocable sign-in of a user
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Email     string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// ActiveAt reports whether the session is usable at t
func (s *Session) ActiveAt(t time.Time) bool {
	return s.RevokedAt == nil && t.Before(s.ExpiresAt)
}

type sessionRow struct {
	ID        string `sql:"id"`
	UserID    string `sql:"user_id"`
	Email     string `sql:"email"`
	ExpiresAt int64  `sql:"expires_at"`
	RevokedAt int64  `sql:"revoked_at"`
	CreatedAt int64  `sql:"created_at"`
}

func (r sessionRow) toSession() (*Session, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return nil, fmt.Errorf("bad session id %q: %w", r.ID, err)
	}
	userID, err := uuid.Parse(r.UserID)
	if err != nil {
		return nil, fmt.Errorf("bad user id %q: %w", r.UserID, err)
	}

	s := &Session{
		ID:        id,
		UserID:    userID,
		Email:     r.Email,
		ExpiresAt: time.Unix(r.ExpiresAt, 0),
		CreatedAt: time.Unix(r.CreatedAt, 0),
	}
	if r.RevokedAt > 0 {
		revokedAt := time.Unix(r.RevokedAt, 0)
		s.RevokedAt = &revokedAt
	}
	return s, nil
}

// Drivers gives the store its read and write connections
type Drivers interface {
	Query() dialect.Driver
	Mutation() dialect.Driver
}

// Store keeps sessions in the sessions table
type Store struct {
	drivers Drivers
	ttl     time.Duration
	now     func() time.Time
	onWrite func(ctx context.Context) error
}

// Option configures a Store
type Option func(*Store)

// WithTTL sets the lifetime of new sessions
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithWriteHook registers a callback run after every successful write,
// used to invalidate cached reads
func WithWriteHook(hook func(ctx context.Context) error) Option {
	return func(s *Store) {
		s.onWrite = hook
	}
}

// NewStore creates a session store
func NewStore(drivers Drivers, opts ...Option) *Store {
	s := &Store{
		drivers: drivers,
		ttl:     defaultSessionTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTLFromEnv reads SESSION_TTL as a Go duration
func TTLFromEnv() time.Duration {
	if value := os.Getenv("SESSION_TTL"); value != "" {
		if ttl, err := time.ParseDuration(value); err == nil {
			return ttl
		}
	}
	return defaultSessionTTL
}

// Migrate creates the sessions table when it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	const ddl = `CREATE TABLE IF NOT EXISTS sessions (
	id VARCHAR(36) PRIMARY KEY,
	user_id VARCHAR(36) NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	expires_at BIGINT NOT NULL,
	revoked_at BIGINT,
	created_at BIGINT NOT NULL
)`
	if err := s.drivers.Mutation().Exec(ctx, ddl, []any{}, nil); err != nil {
		return fmt.Errorf("failed to create sessions table: %w", err)
	}
	return nil
}

// Create starts a new session for the user
func (s *Store) Create(ctx context.Context, userID uuid.UUID, email string) (*Session, error) {
	now := s.now()
	session := &Session{
		ID:        uuid.New(),
		UserID:    userID,
		Email:     email,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}

	drv := s.drivers.Mutation()
	query, args := entsql.Dialect(drv.Dialect()).
		Insert(tableName).
		Columns("id", "user_id", "email", "expires_at", "created_at").
		Values(session.ID.String(), userID.String(), email, session.ExpiresAt.Unix(), now.Unix()).
		Query()

	if err := drv.Exec(ctx, query, args, nil); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.afterWrite(ctx)

	utils.Logger.Debug("Session created",
		zap.String("session_id", session.ID.String()),
		zap.String("user_id", userID.String()),
	)

	return session, nil
}

// Get loads a session by ID regardless of its state. The read goes through
// the query driver and may be served from the shared cache.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.get(ctx, s.drivers.Query(), id)
}

func (s *Store) get(ctx context.Context, drv dialect.Driver, id uuid.UUID) (*Session, error) {
	d := entsql.Dialect(drv.Dialect())
	query, args := d.Select(columns...).
		From(d.Table(tableName)).
		Where(entsql.EQ("id", id.String())).
		Limit(1).
		Query()

	var rows entsql.Rows
	if err := drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	defer rows.Close()

	var found []sessionRow
	if err := entsql.ScanSlice(rows, &found); err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}

	return found[0].toSession()
}

// Active loads a session that is neither revoked nor expired.
// It reads the primary so a revocation takes effect on the next request,
// even when the cache invalidation after Revoke failed.
func (s *Store) Active(ctx context.Context, id uuid.UUID) (*Session, error) {
	session, err := s.get(ctx, s.drivers.Mutation(), id)
	if err != nil {
		return nil, err
	}
	if !session.ActiveAt(s.now()) {
		return nil, ErrNotFound
	}
	return session, nil
}

// Revoke marks an active session as revoked. Revoking an unknown or already
// revoked session returns ErrNotFound.
func (s *Store) Revoke(ctx context.Context, id uuid.UUID) error {
	drv := s.drivers.Mutation()
	query, args := entsql.Dialect(drv.Dialect()).
		Update(tableName).
		Set("revoked_at", s.now().Unix()).
		Where(entsql.And(
			entsql.EQ("id", id.String()),
			entsql.IsNull("revoked_at"),
		)).
		Query()

	var res entsql.Result
	if err := drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read revoke result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.afterWrite(ctx)

	utils.Logger.Info("Session revoked", zap.String("session_id", id.String()))
	return nil
}

func (s *Store) afterWrite(ctx context.Context) {
	if s.onWrite == nil {
		return
	}
	if err := s.onWrite(ctx); err != nil {
		utils.Logger.Warn("Session write hook failed", zap.Error(err))
	}
}
