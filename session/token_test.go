package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(now time.Time) *Session {
	return &Session{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Email:     "u1@example.com",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	manager := NewTokenManager([]byte("secret"), "")
	session := newTestSession(time.Now())

	token, err := manager.Issue(session)
	require.NoError(t, err)

	claims, err := manager.Parse(token)
	require.NoError(t, err)

	userID, err := claims.UserID()
	require.NoError(t, err)
	sessionID, err := claims.SessionID()
	require.NoError(t, err)

	assert.Equal(t, session.UserID, userID)
	assert.Equal(t, session.ID, sessionID)
	assert.Equal(t, "u1@example.com", claims.Email)
	assert.Equal(t, defaultIssuer, claims.Issuer)
}

func TestTokenParseRejects(t *testing.T) {
	now := time.Now()
	manager := NewTokenManager([]byte("secret"), "api")

	sign := func(method jwt.SigningMethod, key interface{}, claims Claims) string {
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}
	valid := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "api",
			Subject:   uuid.NewString(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}

	withClaims := func(mutate func(c *Claims)) Claims {
		c := valid
		mutate(&c)
		return c
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong key", sign(jwt.SigningMethodHS256, []byte("other"), valid)},
		{"wrong algorithm", sign(jwt.SigningMethodHS512, []byte("secret"), valid)},
		{"unsigned", sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid)},
		{"wrong issuer", sign(jwt.SigningMethodHS256, []byte("secret"), withClaims(func(c *Claims) { c.Issuer = "other" }))},
		{"expired", sign(jwt.SigningMethodHS256, []byte("secret"), withClaims(func(c *Claims) {
			c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
		}))},
		{"no expiry", sign(jwt.SigningMethodHS256, []byte("secret"), withClaims(func(c *Claims) { c.ExpiresAt = nil }))},
		{"bad subject", sign(jwt.SigningMethodHS256, []byte("secret"), withClaims(func(c *Claims) { c.Subject = "u1" }))},
		{"bad session id", sign(jwt.SigningMethodHS256, []byte("secret"), withClaims(func(c *Claims) { c.ID = "" }))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.Parse(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewTokenManagerFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := NewTokenManagerFromEnv()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_ISSUER", "issuer")
	manager, err := NewTokenManagerFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "issuer", manager.issuer)
}
