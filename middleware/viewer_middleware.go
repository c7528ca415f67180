package middleware

import (
	"context"
	"net/http"
	"strings"

	"api/session"
	"api/utils"
	"api/viewer"

	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ViewerResolver resolves a bearer token into a viewer
type ViewerResolver interface {
	Resolve(ctx context.Context, token string) (*viewer.Viewer, error)
}

// ViewerMiddleware attaches the request viewer and language to the request context.
// An identity asserted by the API Gateway authorizer wins over the Authorization header.
// Requests without a usable identity continue anonymously.
func ViewerMiddleware(resolver ViewerResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := utils.WithLanguage(r.Context(), r.Header.Get("Accept-Language"))

			v, ok := viewerFromGateway(ctx)
			if !ok {
				v = ResolveViewer(ctx, resolver, BearerToken(r.Header.Get("Authorization")))
			}

			next.ServeHTTP(w, r.WithContext(viewer.NewContext(ctx, v)))
		})
	}
}

// ResolveViewer returns the viewer for token or nil. Tokens that identify nobody
// are logged at debug level, infrastructure failures at error level.
func ResolveViewer(ctx context.Context, resolver ViewerResolver, token string) *viewer.Viewer {
	if token == "" || resolver == nil {
		return nil
	}

	v, err := resolver.Resolve(ctx, token)
	if err != nil {
		if session.IsAnonymous(err) {
			utils.Logger.Debug("Bearer token rejected", zap.Error(err))
		} else {
			utils.Logger.Error("Failed to resolve viewer", zap.Error(err))
		}
		return nil
	}

	utils.Logger.Debug("Viewer resolved",
		zap.String("user_id", v.ID.String()),
		zap.String("session_id", v.SessionID.String()),
	)
	return v
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// viewerFromGateway reads the identity set by an API Gateway authorizer.
// REST APIs expose it as authorizer.principalId or authorizer.claims.sub,
// HTTP APIs as jwt.claims.sub or a Lambda authorizer context.
func viewerFromGateway(ctx context.Context) (*viewer.Viewer, bool) {
	if gw, ok := core.GetAPIGatewayContextFromContext(ctx); ok && gw.Authorizer != nil {
		subject := stringValue(gw.Authorizer["principalId"])
		email := stringValue(gw.Authorizer["email"])
		if claims, ok := gw.Authorizer["claims"].(map[string]interface{}); ok {
			if subject == "" {
				subject = stringValue(claims["sub"])
			}
			if email == "" {
				email = stringValue(claims["email"])
			}
		}
		return gatewayViewer(subject, email)
	}

	if gw, ok := core.GetAPIGatewayV2ContextFromContext(ctx); ok && gw.Authorizer != nil {
		if gw.Authorizer.JWT != nil {
			claims := gw.Authorizer.JWT.Claims
			return gatewayViewer(claims["sub"], claims["email"])
		}
		if gw.Authorizer.Lambda != nil {
			return gatewayViewer(stringValue(gw.Authorizer.Lambda["sub"]), stringValue(gw.Authorizer.Lambda["email"]))
		}
	}

	return nil, false
}

func gatewayViewer(subject, email string) (*viewer.Viewer, bool) {
	if subject == "" {
		return nil, false
	}
	id, err := uuid.Parse(subject)
	if err != nil {
		utils.Logger.Warn("Gateway authorizer subject is not a UUID",
			zap.String("subject", subject),
		)
		return nil, false
	}
	return &viewer.Viewer{
		ID:     id,
		Email:  email,
		Source: viewer.SourceGateway,
	}, true
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}
