package middleware

import (
	"context"

	"api/database"
	"api/utils"
	"api/viewer"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/zap"
)

// GraphQLCacheMiddleware switches entcache per operation type: queries of an
// authenticated viewer get a request-scoped cache, everything else reads through.
func GraphQLCacheMiddleware() graphql.OperationMiddleware {
	return func(ctx context.Context, next graphql.OperationHandler) graphql.ResponseHandler {
		opCtx := graphql.GetOperationContext(ctx)
		if opCtx == nil || opCtx.Operation == nil {
			return next(ctx)
		}

		op := opCtx.Operation.Operation
		_, authenticated := viewer.FromContext(ctx)
		cacheEnabled := op == ast.Query && authenticated

		switch {
		case cacheEnabled:
			ctx = database.EnableContextCache(ctx)
		case op == ast.Subscription:
			// Не включаем контекстный кэш для подписок, чтобы избежать stale данных в долгоживущих сессиях
		default:
			// Пропускаем кэширование для мутаций и анонимных запросов
			ctx = database.SkipCache(ctx)
		}

		if database.IsDebugDB() {
			utils.Logger.Debug("GraphQL operation cache control applied",
				zap.String("operation_name", opCtx.OperationName),
				zap.String("operation_type", string(op)),
				zap.Bool("viewer_present", authenticated),
				zap.Bool("cache_enabled", cacheEnabled),
			)
		}

		return next(ctx)
	}
}
