package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"api/database"
	"api/middleware"
	"api/session"
	"api/utils"
	"api/viewer"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type fakeSessions struct {
	viewers map[string]*viewer.Viewer
	revoked int
}

func (f *fakeSessions) Resolve(ctx context.Context, token string) (*viewer.Viewer, error) {
	if v, ok := f.viewers[token]; ok {
		return v, nil
	}
	return nil, session.ErrInvalidToken
}

func (f *fakeSessions) SignOut(ctx context.Context, v *viewer.Viewer) error {
	f.revoked++
	return nil
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message    string                 `json:"message"`
		Path       []interface{}          `json:"path"`
		Extensions map[string]interface{} `json:"extensions"`
	} `json:"errors"`
}

func setupTestDatabase(t *testing.T) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	drv := entsql.OpenDB(dialect.SQLite, db)
	middleware.SetDatabaseClient(database.NewClientFromDrivers(drv, drv, nil, nil))
	t.Cleanup(func() {
		middleware.SetDatabaseClient(nil)
		_ = db.Close()
	})
}

func postQuery(t *testing.T, h http.Handler, query string, headers map[string]string) graphqlResponse {
	t.Helper()

	body, err := json.Marshal(map[string]string{"query": query})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(string(body)))
	r.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp graphqlResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealthRoute(t *testing.T) {
	router := NewRouter(&fakeSessions{}, &fakeSessions{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestQueryRoute(t *testing.T) {
	setupTestDatabase(t)

	bundle, err := InitI18n()
	require.NoError(t, err)
	utils.SetI18nBundle(bundle)
	t.Cleanup(func() { utils.SetI18nBundle(nil) })

	known := &viewer.Viewer{ID: uuid.New(), SessionID: uuid.New(), Source: viewer.SourceToken}
	sessions := &fakeSessions{viewers: map[string]*viewer.Viewer{"good": known}}
	router := NewRouter(sessions, sessions)

	t.Run("anonymous viewer query", func(t *testing.T) {
		resp := postQuery(t, router, `{ viewer { id } }`, nil)
		assert.JSONEq(t, `null`, string(resp.Data))
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "MustBeAuthorizedError", resp.Errors[0].Extensions["code"])
		assert.Equal(t, "You must be signed in to perform this action", resp.Errors[0].Message)
	})

	t.Run("localized error", func(t *testing.T) {
		resp := postQuery(t, router, `{ viewer { id } }`, map[string]string{"Accept-Language": "ru"})
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "Для выполнения этого действия необходимо войти в систему", resp.Errors[0].Message)
	})

	t.Run("invalid token is anonymous", func(t *testing.T) {
		resp := postQuery(t, router, `{ health viewer { id } }`, map[string]string{"Authorization": "Bearer bad"})
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "MustBeAuthorizedError", resp.Errors[0].Extensions["code"])
	})

	t.Run("authenticated viewer query", func(t *testing.T) {
		resp := postQuery(t, router, `{ viewer { id source } }`, map[string]string{"Authorization": "Bearer good"})
		assert.Empty(t, resp.Errors)
		assert.JSONEq(t, `{"viewer":{"id":"`+known.ID.String()+`","source":"token"}}`, string(resp.Data))
	})

	t.Run("sign out", func(t *testing.T) {
		resp := postQuery(t, router, `mutation { signOut }`, map[string]string{"Authorization": "Bearer good"})
		assert.Empty(t, resp.Errors)
		assert.JSONEq(t, `{"signOut":true}`, string(resp.Data))
		assert.Equal(t, 1, sessions.revoked)
	})

	t.Run("health without viewer", func(t *testing.T) {
		resp := postQuery(t, router, `{ health }`, nil)
		assert.Empty(t, resp.Errors)
		assert.JSONEq(t, `{"health":"ok"}`, string(resp.Data))
	})
}

func TestIntrospection(t *testing.T) {
	setupTestDatabase(t)

	const query = `{ __schema { queryType { name } } }`

	t.Run("served outside production", func(t *testing.T) {
		t.Setenv("ENV", "development")
		t.Setenv("GO_ENV", "development")
		router := NewRouter(&fakeSessions{}, &fakeSessions{})

		resp := postQuery(t, router, query, nil)
		assert.Empty(t, resp.Errors)
		assert.JSONEq(t, `{"__schema":{"queryType":{"name":"Query"}}}`, string(resp.Data))
	})

	t.Run("disabled in production", func(t *testing.T) {
		t.Setenv("ENV", "production")
		router := NewRouter(&fakeSessions{}, &fakeSessions{})

		resp := postQuery(t, router, query, nil)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "introspection disabled", resp.Errors[0].Message)
	})
}

func TestExportSchema(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ExportSchema(dir))

	raw, err := os.ReadFile(filepath.Join(dir, "schema.graphql"))
	require.NoError(t, err)
	data := string(raw)
	assert.Contains(t, data, "requireAuth")
	assert.Contains(t, data, "type Viewer")
	assert.Contains(t, data, "signOut")
}
