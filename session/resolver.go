package session

import (
	"context"
	"errors"
	"fmt"

	"api/viewer"
)

// Resolver turns bearer tokens into viewers
type Resolver struct {
	tokens *TokenManager
	store  *Store
}

// NewResolver creates a viewer resolver
func NewResolver(tokens *TokenManager, store *Store) *Resolver {
	return &Resolver{tokens: tokens, store: store}
}

// Resolve verifies the token and loads its active session.
// ErrInvalidToken and ErrNotFound mean the caller is anonymous; any other
// error is an infrastructure failure.
func (r *Resolver) Resolve(ctx context.Context, token string) (*viewer.Viewer, error) {
	claims, err := r.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	// Parse already validated both IDs
	userID, _ := claims.UserID()
	sessionID, _ := claims.SessionID()

	session, err := r.store.Active(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("%w: session belongs to another user", ErrInvalidToken)
	}

	return &viewer.Viewer{
		ID:        session.UserID,
		SessionID: session.ID,
		Email:     session.Email,
		Source:    viewer.SourceToken,
	}, nil
}

// SignIn creates a session for the user and returns a signed token for it
func (r *Resolver) SignIn(ctx context.Context, userID, email string) (string, *Session, error) {
	id, err := parseUserID(userID)
	if err != nil {
		return "", nil, err
	}
	session, err := r.store.Create(ctx, id, email)
	if err != nil {
		return "", nil, err
	}
	token, err := r.tokens.Issue(session)
	if err != nil {
		return "", nil, err
	}
	return token, session, nil
}

// SignOut revokes the viewer's session
func (r *Resolver) SignOut(ctx context.Context, v *viewer.Viewer) error {
	if !v.HasSession() {
		return errors.New("viewer has no session to revoke")
	}
	return r.store.Revoke(ctx, v.SessionID)
}

// IsAnonymous reports whether err only means the token does not identify anyone
func IsAnonymous(err error) bool {
	return errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrNotFound)
}
