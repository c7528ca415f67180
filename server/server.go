package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"api/apierror"
	"api/graph/resolvers"
	"api/middleware"
	"api/session"
	"api/utils"
	"api/viewer"

	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// NewGraphQLServer creates the GraphQL handler over the API schema
func NewGraphQLServer(viewers middleware.ViewerResolver, sessions resolvers.SessionRevoker) *handler.Server {
	srv := handler.New(resolvers.NewSchema(sessions))
	if !utils.IsProduction() {
		srv.Use(extension.Introspection{})
	}

	srv.AddTransport(transport.Websocket{
		KeepAlivePingInterval: 10 * time.Second,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		InitFunc: websocketInit(viewers),
	})
	srv.AddTransport(transport.Options{})
	srv.AddTransport(transport.GET{})
	srv.AddTransport(transport.POST{})

	srv.SetErrorPresenter(apierror.Presenter)
	srv.SetRecoverFunc(apierror.Recover)

	// Cache control per operation type (query vs mutation)
	srv.AroundOperations(middleware.GraphQLCacheMiddleware())

	// Logging
	srv.AroundOperations(middleware.OperationLoggingMiddleware())

	return srv
}

// websocketInit resolves the viewer from the connection_init payload the same
// way the HTTP middleware does for the Authorization header
func websocketInit(viewers middleware.ViewerResolver) transport.WebsocketInitFunc {
	return func(ctx context.Context, initPayload transport.InitPayload) (context.Context, *transport.InitPayload, error) {
		authorization := initPayload.Authorization()
		token := middleware.BearerToken(authorization)
		if token == "" {
			token = authorization
		}

		if v := middleware.ResolveViewer(ctx, viewers, token); v != nil {
			ctx = viewer.NewContext(ctx, v)
		}
		return ctx, &initPayload, nil
	}
}

// NewRouter mounts the HTTP routes
func NewRouter(viewers middleware.ViewerResolver, sessions resolvers.SessionRevoker) *chi.Mux {
	r := chi.NewRouter()

	// Global CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler)

	graphqlServer := NewGraphQLServer(viewers, sessions)

	r.Group(func(r chi.Router) {
		r.Use(middleware.HTTPHeadersLoggingMiddleware)
		r.Use(middleware.DatabaseMiddleware)
		r.Use(middleware.ViewerMiddleware(viewers))

		// Playground только для не-продакшн окружения
		if !utils.IsProduction() {
			r.Handle("/", playground.Handler("GraphQL playground", "/query"))
		}

		r.Handle("/query", graphqlServer)
	})

	return r
}

// SetupRouter wires i18n, the database, the session store and the router from the environment
func SetupRouter() (*chi.Mux, error) {
	bundle, err := InitI18n()
	if err != nil {
		return nil, err
	}
	utils.SetI18nBundle(bundle)

	sessions, err := NewSessionResolver(context.Background())
	if err != nil {
		return nil, err
	}

	return NewRouter(sessions, sessions), nil
}

// NewSessionResolver opens the database and builds the token-to-viewer resolver
func NewSessionResolver(ctx context.Context) (*session.Resolver, error) {
	tokens, err := session.NewTokenManagerFromEnv()
	if err != nil {
		return nil, err
	}

	store, err := NewSessionStore(ctx)
	if err != nil {
		return nil, err
	}
	return session.NewResolver(tokens, store), nil
}

// NewSessionStore opens the database and returns the session store over it.
// Session writes invalidate the shared query cache.
func NewSessionStore(ctx context.Context) (*session.Store, error) {
	db, err := middleware.InitDatabaseClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return session.NewStore(db,
		session.WithTTL(session.TTLFromEnv()),
		session.WithWriteHook(db.InvalidateCache),
	), nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		utils.Logger.Warn("Failed to write health response", zap.Error(err))
	}
}
