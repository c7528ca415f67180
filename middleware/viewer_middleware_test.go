package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"api/session"
	"api/utils"
	"api/viewer"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	viewers map[string]*viewer.Viewer
	err     error
	calls   int
}

func (f *fakeResolver) Resolve(ctx context.Context, token string) (*viewer.Viewer, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.viewers[token]; ok {
		return v, nil
	}
	return nil, session.ErrInvalidToken
}

type capture struct {
	viewer   *viewer.Viewer
	present  bool
	language string
}

func serve(t *testing.T, resolver ViewerResolver, r *http.Request) capture {
	t.Helper()

	var got capture
	handler := ViewerMiddleware(resolver)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.viewer, got.present = viewer.FromContext(r.Context())
		got.language = utils.GetLanguage(r.Context())
	}))
	handler.ServeHTTP(httptest.NewRecorder(), r)
	return got
}

func TestViewerMiddleware(t *testing.T) {
	known := &viewer.Viewer{ID: uuid.New(), SessionID: uuid.New(), Source: viewer.SourceToken}

	tests := []struct {
		name     string
		header   string
		resolver *fakeResolver
		want     *viewer.Viewer
	}{
		{
			name:     "valid token",
			header:   "Bearer good",
			resolver: &fakeResolver{viewers: map[string]*viewer.Viewer{"good": known}},
			want:     known,
		},
		{
			name:     "lowercase scheme",
			header:   "bearer good",
			resolver: &fakeResolver{viewers: map[string]*viewer.Viewer{"good": known}},
			want:     known,
		},
		{
			name:     "missing token",
			resolver: &fakeResolver{},
		},
		{
			name:     "unknown token",
			header:   "Bearer bad",
			resolver: &fakeResolver{},
		},
		{
			name:     "revoked session",
			header:   "Bearer good",
			resolver: &fakeResolver{err: session.ErrNotFound},
		},
		{
			name:     "store failure",
			header:   "Bearer good",
			resolver: &fakeResolver{err: errors.New("connection refused")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/query", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			got := serve(t, tt.resolver, r)
			if tt.want == nil {
				assert.False(t, got.present)
				assert.Nil(t, got.viewer)
				return
			}
			assert.True(t, got.present)
			assert.Same(t, tt.want, got.viewer)
		})
	}
}

func TestViewerMiddlewareSkipsResolverWithoutToken(t *testing.T) {
	resolver := &fakeResolver{}
	serve(t, resolver, httptest.NewRequest(http.MethodGet, "/query", nil))
	assert.Equal(t, 0, resolver.calls)
}

func TestViewerMiddlewareLanguage(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/query", nil)
	r.Header.Set("Accept-Language", "ru-RU,ru;q=0.9")

	got := serve(t, &fakeResolver{}, r)
	assert.Equal(t, "ru-RU,ru;q=0.9", got.language)

	got = serve(t, &fakeResolver{}, httptest.NewRequest(http.MethodPost, "/query", nil))
	assert.Equal(t, "en", got.language)
}

func TestViewerMiddlewareGatewayAuthorizer(t *testing.T) {
	userID := uuid.New()
	resolver := &fakeResolver{}

	t.Run("REST principal", func(t *testing.T) {
		event := events.APIGatewayProxyRequest{
			HTTPMethod: http.MethodPost,
			Path:       "/query",
			Headers:    map[string]string{"Authorization": "Bearer ignored"},
			RequestContext: events.APIGatewayProxyRequestContext{
				DomainName: "api.example.com",
				Authorizer: map[string]interface{}{
					"principalId": userID.String(),
					"email":       "u1@example.com",
				},
			},
		}
		r, err := (&core.RequestAccessor{}).EventToRequestWithContext(context.Background(), event)
		require.NoError(t, err)

		got := serve(t, resolver, r)
		require.True(t, got.present)
		assert.Equal(t, userID, got.viewer.ID)
		assert.Equal(t, "u1@example.com", got.viewer.Email)
		assert.Equal(t, viewer.SourceGateway, got.viewer.Source)
		assert.False(t, got.viewer.HasSession())
		assert.Equal(t, 0, resolver.calls)
	})

	t.Run("REST cognito claims", func(t *testing.T) {
		event := events.APIGatewayProxyRequest{
			HTTPMethod: http.MethodPost,
			Path:       "/query",
			RequestContext: events.APIGatewayProxyRequestContext{
				DomainName: "api.example.com",
				Authorizer: map[string]interface{}{
					"claims": map[string]interface{}{"sub": userID.String()},
				},
			},
		}
		r, err := (&core.RequestAccessor{}).EventToRequestWithContext(context.Background(), event)
		require.NoError(t, err)

		got := serve(t, resolver, r)
		require.True(t, got.present)
		assert.Equal(t, userID, got.viewer.ID)
	})

	t.Run("HTTP API JWT claims", func(t *testing.T) {
		event := events.APIGatewayV2HTTPRequest{
			RawPath: "/query",
			RequestContext: events.APIGatewayV2HTTPRequestContext{
				DomainName: "api.example.com",
				HTTP:       events.APIGatewayV2HTTPRequestContextHTTPDescription{Method: http.MethodPost, Path: "/query"},
				Authorizer: &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{
					JWT: &events.APIGatewayV2HTTPRequestContextAuthorizerJWTDescription{
						Claims: map[string]string{"sub": userID.String()},
					},
				},
			},
		}
		r, err := (&core.RequestAccessorV2{}).EventToRequestWithContext(context.Background(), event)
		require.NoError(t, err)

		got := serve(t, resolver, r)
		require.True(t, got.present)
		assert.Equal(t, userID, got.viewer.ID)
	})

	t.Run("non UUID principal is anonymous", func(t *testing.T) {
		event := events.APIGatewayProxyRequest{
			HTTPMethod: http.MethodPost,
			Path:       "/query",
			RequestContext: events.APIGatewayProxyRequestContext{
				DomainName: "api.example.com",
				Authorizer: map[string]interface{}{"principalId": "u1"},
			},
		}
		r, err := (&core.RequestAccessor{}).EventToRequestWithContext(context.Background(), event)
		require.NoError(t, err)

		got := serve(t, resolver, r)
		assert.False(t, got.present)
	})
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("  Bearer   abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("abc"))
	assert.Equal(t, "", BearerToken(""))
}
