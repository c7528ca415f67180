package resolvers

// This file will be automatically regenerated based on the schema, any resolver implementations
// will be copied through when generating and any unknown code will be moved to the end.
// Code generated by github.com/99designs/gqlgen

import (
	"context"
	"errors"

	"api/apierror"
	"api/graph/generated"
	"api/graph/model"
	"api/session"
	"api/utils"
	"api/viewer"

	"go.uber.org/zap"
)

// SignOut is the resolver for the signOut field.
func (r *mutationResolver) SignOut(ctx context.Context) (bool, error) {
	v, ok := viewer.FromContext(ctx)
	if !ok {
		return false, apierror.New(apierror.MustBeAuthorizedError)
	}
	if !v.HasSession() {
		// gateway identities have no session of ours
		return false, nil
	}

	if err := r.sessions.SignOut(ctx, v); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return false, nil
		}
		utils.Logger.Error("Failed to sign out",
			zap.String("session_id", v.SessionID.String()),
			zap.Error(err),
		)
		return false, apierror.New(apierror.InternalError)
	}
	return true, nil
}

// Health is the resolver for the health field.
func (r *queryResolver) Health(ctx context.Context) (string, error) {
	return "ok", nil
}

// Viewer is the resolver for the viewer field.
func (r *queryResolver) Viewer(ctx context.Context) (*model.Viewer, error) {
	v, ok := viewer.FromContext(ctx)
	if !ok {
		return nil, apierror.New(apierror.MustBeAuthorizedError)
	}
	return model.NewViewer(v), nil
}

// Mutation returns generated.MutationResolver implementation.
func (r *Resolver) Mutation() generated.MutationResolver { return &mutationResolver{r} }

// Query returns generated.QueryResolver implementation.
func (r *Resolver) Query() generated.QueryResolver { return &queryResolver{r} }

type mutationResolver struct{ *Resolver }
type queryResolver struct{ *Resolver }
