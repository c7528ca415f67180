package directives

import (
	"context"

	"api/security"

	"github.com/99designs/gqlgen/graphql"
)

// RequireAuth resolves the field only when the operation has a viewer.
// next is called at most once and its result is returned unchanged.
func RequireAuth(ctx context.Context, obj interface{}, next graphql.Resolver) (interface{}, error) {
	if err := security.ValidateViewer(ctx); err != nil {
		return nil, err
	}

	return next(ctx)
}
