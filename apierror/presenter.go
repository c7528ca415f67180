package apierror

import (
	"context"
	"errors"
	"fmt"

	"api/utils"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"
)

// Presenter converts API errors into GraphQL errors with a localized message
// and the kind in extensions.code. Other errors are presented unchanged.
func Presenter(ctx context.Context, err error) *gqlerror.Error {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return graphql.DefaultErrorPresenter(ctx, err)
	}

	gqlErr := graphql.DefaultErrorPresenter(ctx, err)
	gqlErr.Message = utils.T(ctx, "error."+apiErr.Kind(), apiErr.DefaultMessage())
	if gqlErr.Extensions == nil {
		gqlErr.Extensions = make(map[string]interface{}, 1)
	}
	gqlErr.Extensions["code"] = apiErr.Kind()

	return gqlErr
}

// Recover logs resolver panics and reports them as InternalError
func Recover(ctx context.Context, p interface{}) error {
	path := ""
	if fc := graphql.GetFieldContext(ctx); fc != nil {
		path = fc.Path().String()
	}
	utils.Logger.Error("Panic while resolving GraphQL field",
		zap.String("path", path),
		zap.String("panic", fmt.Sprint(p)),
		zap.Stack("stack"),
	)
	return New(InternalError)
}
