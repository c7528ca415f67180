package viewer

import (
	"context"

	"github.com/google/uuid"
)

// Source tells how the viewer was established for the request
type Source string

const (
	// SourceToken - resolved from a bearer token and an active session
	SourceToken Source = "token"
	// SourceGateway - supplied by the API Gateway authorizer in front of the Lambda
	SourceGateway Source = "gateway"
)

// Viewer is the authenticated identity associated with one inbound operation
type Viewer struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Email     string
	Source    Source
}

// HasSession reports whether the viewer is backed by a revocable session
func (v *Viewer) HasSession() bool {
	return v != nil && v.SessionID != uuid.Nil
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying v. A nil v leaves ctx unchanged.
func NewContext(ctx context.Context, v *Viewer) context.Context {
	if v == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, v)
}

// FromContext returns the viewer of the current operation, if any
func FromContext(ctx context.Context) (*Viewer, bool) {
	v, ok := ctx.Value(contextKey{}).(*Viewer)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
