package resolvers

// This file will not be regenerated automatically.
//
// It serves as dependency injection for your app, add any dependencies you require here.

import (
	"context"

	"api/graph/directives"
	"api/graph/generated"
	"api/viewer"

	"github.com/99designs/gqlgen/graphql"
)

// SessionRevoker revokes the session behind a viewer
type SessionRevoker interface {
	SignOut(ctx context.Context, v *viewer.Viewer) error
}

// Resolver is the resolver root
type Resolver struct {
	sessions SessionRevoker
}

// NewResolver creates the resolver root
func NewResolver(sessions SessionRevoker) *Resolver {
	return &Resolver{sessions: sessions}
}

// NewSchema creates a graphql executable schema
func NewSchema(sessions SessionRevoker) graphql.ExecutableSchema {
	return generated.NewExecutableSchema(generated.Config{
		Resolvers: NewResolver(sessions),
		Directives: generated.DirectiveRoot{
			RequireAuth: directives.RequireAuth,
		},
	})
}
