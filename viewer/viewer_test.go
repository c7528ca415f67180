package viewer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		v, ok := FromContext(context.Background())
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("present", func(t *testing.T) {
		want := &Viewer{ID: uuid.New(), Source: SourceToken}
		v, ok := FromContext(NewContext(context.Background(), want))
		require.True(t, ok)
		assert.Same(t, want, v)
	})

	t.Run("nil viewer is absent", func(t *testing.T) {
		ctx := NewContext(context.Background(), nil)
		_, ok := FromContext(ctx)
		assert.False(t, ok)
	})
}

func TestHasSession(t *testing.T) {
	assert.False(t, (*Viewer)(nil).HasSession())
	assert.False(t, (&Viewer{ID: uuid.New()}).HasSession())
	assert.True(t, (&Viewer{ID: uuid.New(), SessionID: uuid.New()}).HasSession())
}
