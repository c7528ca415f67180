package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"api/utils"

	"github.com/99designs/gqlgen/graphql"
	"go.uber.org/zap"
)

var redactedHeaders = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
}

// HTTPHeadersLoggingMiddleware logs incoming request headers at debug level
// with credentials redacted
func HTTPHeadersLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ce := utils.Logger.Check(zap.DebugLevel, "Incoming HTTP request headers"); ce != nil {
			headers := make(map[string]string, len(r.Header))
			for key, values := range r.Header {
				if redactedHeaders[key] {
					headers[key] = "[redacted]"
					continue
				}
				headers[key] = strings.Join(values, ", ")
			}
			ce.Write(
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Any("headers", headers),
			)
		}

		next.ServeHTTP(w, r)
	})
}

// OperationLoggingMiddleware logs every GraphQL operation with its duration
func OperationLoggingMiddleware() graphql.OperationMiddleware {
	return func(ctx context.Context, next graphql.OperationHandler) graphql.ResponseHandler {
		opCtx := graphql.GetOperationContext(ctx)
		handler := next(ctx)

		return func(ctx context.Context) *graphql.Response {
			start := time.Now()
			resp := handler(ctx)
			if resp == nil || opCtx == nil || opCtx.Operation == nil {
				return resp
			}

			utils.Logger.Info("GraphQL operation",
				zap.String("operation_name", opCtx.OperationName),
				zap.String("operation_type", string(opCtx.Operation.Operation)),
				zap.Int("errors", len(resp.Errors)),
				zap.Duration("duration", time.Since(start)),
			)
			return resp
		}
	}
}
