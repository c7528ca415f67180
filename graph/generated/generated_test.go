package generated

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"api/apierror"
	"api/graph/directives"
	"api/graph/model"
	"api/viewer"

	"github.com/99designs/gqlgen/client"
	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolvers struct {
	viewerCalls  int
	signOutCalls int
	healthErr    error
	panicOnSign  bool
}

func (s *stubResolvers) Query() QueryResolver       { return stubQuery{s} }
func (s *stubResolvers) Mutation() MutationResolver { return stubMutation{s} }

type stubQuery struct{ *stubResolvers }

func (q stubQuery) Health(ctx context.Context) (string, error) {
	if q.healthErr != nil {
		return "", q.healthErr
	}
	return "ok", nil
}

func (q stubQuery) Viewer(ctx context.Context) (*model.Viewer, error) {
	q.viewerCalls++
	v, _ := viewer.FromContext(ctx)
	return model.NewViewer(v), nil
}

type stubMutation struct{ *stubResolvers }

func (m stubMutation) SignOut(ctx context.Context) (bool, error) {
	m.signOutCalls++
	if m.panicOnSign {
		panic("boom")
	}
	return true, nil
}

type gqlError struct {
	Message    string                 `json:"message"`
	Path       []interface{}          `json:"path"`
	Extensions map[string]interface{} `json:"extensions"`
}

func newTestServer(resolvers ResolverRoot, dirs DirectiveRoot) *handler.Server {
	srv := handler.New(NewExecutableSchema(Config{
		Resolvers:  resolvers,
		Directives: dirs,
	}))
	srv.AddTransport(transport.POST{})
	srv.SetErrorPresenter(apierror.Presenter)
	srv.SetRecoverFunc(apierror.Recover)
	return srv
}

func newTestClient(resolvers ResolverRoot, dirs DirectiveRoot, v *viewer.Viewer) *client.Client {
	srv := newTestServer(resolvers, dirs)
	srv.Use(extension.Introspection{})

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.ServeHTTP(w, r.WithContext(viewer.NewContext(r.Context(), v)))
	})
	return client.New(h)
}

func decodeErrors(t *testing.T, raw json.RawMessage) []gqlError {
	t.Helper()
	if len(raw) == 0 {
		return nil
	}
	var errs []gqlError
	require.NoError(t, json.Unmarshal(raw, &errs))
	return errs
}

var authDirectives = DirectiveRoot{RequireAuth: directives.RequireAuth}

func TestHealthWithoutViewer(t *testing.T) {
	c := newTestClient(&stubResolvers{}, authDirectives, nil)

	var resp struct {
		Health   string
		Typename string `json:"__typename"`
	}
	require.NoError(t, c.Post(`{ health __typename }`, &resp))
	assert.Equal(t, "ok", resp.Health)
	assert.Equal(t, "Query", resp.Typename)
}

func TestViewerRequiresAuth(t *testing.T) {
	resolvers := &stubResolvers{}
	c := newTestClient(resolvers, authDirectives, nil)

	resp, err := c.RawPost(`{ health viewer { id } }`)
	require.NoError(t, err)

	assert.Nil(t, resp.Data)
	errs := decodeErrors(t, resp.Errors)
	require.Len(t, errs, 1)
	assert.Equal(t, []interface{}{"viewer"}, errs[0].Path)
	assert.Equal(t, apierror.MustBeAuthorizedError, errs[0].Extensions["code"])
	assert.Equal(t, "You must be signed in to perform this action", errs[0].Message)
	assert.Equal(t, 0, resolvers.viewerCalls)
}

func TestViewerWithAuth(t *testing.T) {
	resolvers := &stubResolvers{}
	v := &viewer.Viewer{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		Email:     "u1@example.com",
		Source:    viewer.SourceToken,
	}
	c := newTestClient(resolvers, authDirectives, v)

	var resp struct {
		Viewer struct {
			ID        string
			Email     *string
			SessionID *string
			Source    string
			Typename  string `json:"__typename"`
		}
	}
	require.NoError(t, c.Post(`{ viewer { id email sessionId source __typename } }`, &resp))

	assert.Equal(t, v.ID.String(), resp.Viewer.ID)
	require.NotNil(t, resp.Viewer.Email)
	assert.Equal(t, "u1@example.com", *resp.Viewer.Email)
	require.NotNil(t, resp.Viewer.SessionID)
	assert.Equal(t, v.SessionID.String(), *resp.Viewer.SessionID)
	assert.Equal(t, "token", resp.Viewer.Source)
	assert.Equal(t, "Viewer", resp.Viewer.Typename)
	assert.Equal(t, 1, resolvers.viewerCalls)
}

func TestGatewayViewerHasNullSession(t *testing.T) {
	v := &viewer.Viewer{ID: uuid.New(), Source: viewer.SourceGateway}
	c := newTestClient(&stubResolvers{}, authDirectives, v)

	var resp struct {
		Viewer struct {
			Email     *string
			SessionID *string
		}
	}
	require.NoError(t, c.Post(`{ viewer { email sessionId } }`, &resp))
	assert.Nil(t, resp.Viewer.Email)
	assert.Nil(t, resp.Viewer.SessionID)
}

func TestMutationRequiresAuth(t *testing.T) {
	resolvers := &stubResolvers{}
	c := newTestClient(resolvers, authDirectives, nil)

	resp, err := c.RawPost(`mutation { signOut }`)
	require.NoError(t, err)

	errs := decodeErrors(t, resp.Errors)
	require.Len(t, errs, 1)
	assert.Equal(t, []interface{}{"signOut"}, errs[0].Path)
	assert.Equal(t, apierror.MustBeAuthorizedError, errs[0].Extensions["code"])
	assert.Equal(t, 0, resolvers.signOutCalls)
}

func TestMutationWithAuth(t *testing.T) {
	resolvers := &stubResolvers{}
	c := newTestClient(resolvers, authDirectives, &viewer.Viewer{ID: uuid.New()})

	var resp struct{ SignOut bool }
	require.NoError(t, c.Post(`mutation { signOut }`, &resp))
	assert.True(t, resp.SignOut)
	assert.Equal(t, 1, resolvers.signOutCalls)
}

func TestResolverErrorIsPresentedUnchanged(t *testing.T) {
	c := newTestClient(&stubResolvers{healthErr: errors.New("database is down")}, authDirectives, nil)

	resp, err := c.RawPost(`{ health }`)
	require.NoError(t, err)

	assert.Nil(t, resp.Data)
	errs := decodeErrors(t, resp.Errors)
	require.Len(t, errs, 1)
	assert.Equal(t, "database is down", errs[0].Message)
	assert.Equal(t, []interface{}{"health"}, errs[0].Path)
	assert.Nil(t, errs[0].Extensions)
}

func TestResolverPanicIsRecovered(t *testing.T) {
	c := newTestClient(&stubResolvers{panicOnSign: true}, authDirectives, &viewer.Viewer{ID: uuid.New()})

	resp, err := c.RawPost(`mutation { signOut }`)
	require.NoError(t, err)

	errs := decodeErrors(t, resp.Errors)
	require.Len(t, errs, 1)
	assert.Equal(t, apierror.InternalError, errs[0].Extensions["code"])
}

func TestMissingDirectiveImplementation(t *testing.T) {
	resolvers := &stubResolvers{}
	c := newTestClient(resolvers, DirectiveRoot{}, &viewer.Viewer{ID: uuid.New()})

	resp, err := c.RawPost(`{ viewer { id } }`)
	require.NoError(t, err)

	errs := decodeErrors(t, resp.Errors)
	require.Len(t, errs, 1)
	assert.Equal(t, "directive requireAuth is not implemented", errs[0].Message)
	assert.Equal(t, 0, resolvers.viewerCalls)
}

func TestIntrospectionWithoutViewer(t *testing.T) {
	c := newTestClient(&stubResolvers{}, authDirectives, nil)

	var resp struct {
		Schema struct {
			QueryType    struct{ Name string }
			MutationType struct{ Name string }
			Types        []struct{ Name string }
			Directives   []struct {
				Name      string
				Locations []string
			}
		} `json:"__schema"`
	}
	require.NoError(t, c.Post(`{ __schema {
		queryType { name }
		mutationType { name }
		types { name }
		directives { name locations }
	} }`, &resp))

	assert.Equal(t, "Query", resp.Schema.QueryType.Name)
	assert.Equal(t, "Mutation", resp.Schema.MutationType.Name)

	var types []string
	for _, typ := range resp.Schema.Types {
		types = append(types, typ.Name)
	}
	assert.Contains(t, types, "Viewer")
	assert.Contains(t, types, "__Schema")

	var requireAuth []string
	for _, d := range resp.Schema.Directives {
		if d.Name == "requireAuth" {
			requireAuth = d.Locations
		}
	}
	assert.Equal(t, []string{"FIELD_DEFINITION"}, requireAuth)
}

func TestIntrospectTypeFields(t *testing.T) {
	c := newTestClient(&stubResolvers{}, authDirectives, nil)

	var resp struct {
		Type struct {
			Kind   string
			Fields []struct {
				Name string
				Type struct {
					Kind   string
					OfType *struct{ Name string }
				}
			}
		} `json:"__type"`
	}
	require.NoError(t, c.Post(`{ __type(name: "Viewer") { kind fields { name type { kind ofType { name } } } } }`, &resp))

	assert.Equal(t, "OBJECT", resp.Type.Kind)
	require.Len(t, resp.Type.Fields, 4)
	assert.Equal(t, "id", resp.Type.Fields[0].Name)
	assert.Equal(t, "NON_NULL", resp.Type.Fields[0].Type.Kind)
	require.NotNil(t, resp.Type.Fields[0].Type.OfType)
	assert.Equal(t, "ID", resp.Type.Fields[0].Type.OfType.Name)
}

func TestIntrospectionDisabledWithoutExtension(t *testing.T) {
	c := client.New(newTestServer(&stubResolvers{}, authDirectives))

	resp, err := c.RawPost(`{ __schema { queryType { name } } }`)
	require.NoError(t, err)

	errs := decodeErrors(t, resp.Errors)
	require.Len(t, errs, 1)
	assert.Equal(t, "introspection disabled", errs[0].Message)
}
