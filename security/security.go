package security

import (
	"context"

	"api/apierror"
	"api/viewer"
)

// ValidateViewer checks that the operation is associated with an authenticated viewer
func ValidateViewer(ctx context.Context) error {
	if _, ok := viewer.FromContext(ctx); !ok {
		return apierror.New(apierror.MustBeAuthorizedError)
	}
	return nil
}
