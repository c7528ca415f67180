package directives

import (
	"context"
	"errors"
	"testing"

	"api/apierror"
	"api/viewer"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResolver struct {
	calls int
	value interface{}
	err   error
}

func (r *countingResolver) resolve(ctx context.Context) (interface{}, error) {
	r.calls++
	return r.value, r.err
}

func authorized() context.Context {
	return viewer.NewContext(context.Background(), &viewer.Viewer{ID: uuid.New(), Source: viewer.SourceToken})
}

func TestRequireAuth(t *testing.T) {
	errDownstream := errors.New("downstream failed")

	tests := []struct {
		name      string
		ctx       context.Context
		next      *countingResolver
		wantValue interface{}
		wantErr   error
		wantCalls int
	}{
		{
			name:      "viewer present, next succeeds",
			ctx:       authorized(),
			next:      &countingResolver{value: "ok"},
			wantValue: "ok",
			wantCalls: 1,
		},
		{
			name:      "viewer absent, next never called",
			ctx:       context.Background(),
			next:      &countingResolver{value: "ok"},
			wantErr:   apierror.New(apierror.MustBeAuthorizedError),
			wantCalls: 0,
		},
		{
			name:      "viewer present, next fails",
			ctx:       authorized(),
			next:      &countingResolver{err: errDownstream},
			wantErr:   errDownstream,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := RequireAuth(tt.ctx, nil, tt.next.resolve)

			assert.Equal(t, tt.wantCalls, tt.next.calls)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, value)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestRequireAuthPassesDownstreamErrorUnchanged(t *testing.T) {
	errDownstream := errors.New("downstream failed")
	next := &countingResolver{err: errDownstream}

	_, err := RequireAuth(authorized(), nil, next.resolve)

	assert.Same(t, errDownstream, err)
	assert.False(t, apierror.IsKind(err, apierror.MustBeAuthorizedError))
}

func TestRequireAuthIsRepeatable(t *testing.T) {
	next := &countingResolver{value: "ok"}
	ctx := context.Background()

	_, first := RequireAuth(ctx, nil, next.resolve)
	_, second := RequireAuth(ctx, nil, next.resolve)

	kind1, _ := apierror.KindOf(first)
	kind2, _ := apierror.KindOf(second)
	assert.Equal(t, apierror.MustBeAuthorizedError, kind1)
	assert.Equal(t, kind1, kind2)
	assert.NotSame(t, first, second)
	assert.Zero(t, next.calls)
}
