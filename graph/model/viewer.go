package model

import (
	"api/viewer"

	"github.com/google/uuid"
)

// NewViewer converts the request viewer into its GraphQL representation
func NewViewer(v *viewer.Viewer) *Viewer {
	if v == nil {
		return nil
	}
	out := &Viewer{
		ID:     v.ID.String(),
		Source: string(v.Source),
	}
	if v.Email != "" {
		email := v.Email
		out.Email = &email
	}
	if v.SessionID != uuid.Nil {
		sessionID := v.SessionID.String()
		out.SessionID = &sessionID
	}
	return out
}
