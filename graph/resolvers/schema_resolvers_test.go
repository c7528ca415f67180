package resolvers

import (
	"context"
	"errors"
	"testing"

	"api/apierror"
	"api/session"
	"api/viewer"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRevoker struct {
	err     error
	revoked []uuid.UUID
}

func (f *fakeRevoker) SignOut(ctx context.Context, v *viewer.Viewer) error {
	if f.err != nil {
		return f.err
	}
	f.revoked = append(f.revoked, v.SessionID)
	return nil
}

func TestSignOut(t *testing.T) {
	withSession := &viewer.Viewer{ID: uuid.New(), SessionID: uuid.New(), Source: viewer.SourceToken}
	gateway := &viewer.Viewer{ID: uuid.New(), Source: viewer.SourceGateway}

	tests := []struct {
		name        string
		viewer      *viewer.Viewer
		revokeErr   error
		want        bool
		wantKind    string
		wantRevoked int
	}{
		{name: "revokes session", viewer: withSession, want: true, wantRevoked: 1},
		{name: "gateway viewer has nothing to revoke", viewer: gateway},
		{name: "already revoked", viewer: withSession, revokeErr: session.ErrNotFound},
		{name: "store failure", viewer: withSession, revokeErr: errors.New("connection refused"), wantKind: apierror.InternalError},
		{name: "anonymous", wantKind: apierror.MustBeAuthorizedError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			revoker := &fakeRevoker{err: tt.revokeErr}
			r := NewResolver(revoker)
			ctx := viewer.NewContext(context.Background(), tt.viewer)

			got, err := r.Mutation().SignOut(ctx)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.True(t, apierror.IsKind(err, tt.wantKind))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, revoker.revoked, tt.wantRevoked)
		})
	}
}

func TestViewer(t *testing.T) {
	r := NewResolver(&fakeRevoker{})

	_, err := r.Query().Viewer(context.Background())
	assert.True(t, apierror.IsKind(err, apierror.MustBeAuthorizedError))

	v := &viewer.Viewer{ID: uuid.New(), Email: "u1@example.com", Source: viewer.SourceToken}
	got, err := r.Query().Viewer(viewer.NewContext(context.Background(), v))
	require.NoError(t, err)
	assert.Equal(t, v.ID.String(), got.ID)
	require.NotNil(t, got.Email)
	assert.Equal(t, "u1@example.com", *got.Email)
	assert.Nil(t, got.SessionID)
	assert.Equal(t, "token", got.Source)
}

func TestHealth(t *testing.T) {
	got, err := NewResolver(nil).Query().Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestNewSchemaParsesEmbeddedSDL(t *testing.T) {
	schema := NewSchema(&fakeRevoker{}).Schema()
	require.NotNil(t, schema.Query)
	require.NotNil(t, schema.Mutation)

	field := schema.Query.Fields.ForName("viewer")
	require.NotNil(t, field)
	assert.NotNil(t, field.Directives.ForName("requireAuth"))
	assert.Nil(t, schema.Query.Fields.ForName("health").Directives.ForName("requireAuth"))
}
