package middleware

import (
	"context"
	"net/http"
	"sync"

	"api/database"
	"api/utils"

	"go.uber.org/zap"
)

var (
	globalDBClient *database.Client
	dbClientMu     sync.Mutex
)

// InitDatabaseClient opens the global database client if it is not open yet.
// A failed attempt is not cached, the next call retries.
func InitDatabaseClient(ctx context.Context) (*database.Client, error) {
	dbClientMu.Lock()
	defer dbClientMu.Unlock()

	if globalDBClient != nil {
		return globalDBClient, nil
	}

	client, err := database.NewClient(ctx, database.GetConfigFromEnv())
	if err != nil {
		utils.Logger.Error("Failed to initialize database client",
			zap.Error(err),
		)
		return nil, err
	}

	globalDBClient = client
	utils.Logger.Info("Database client initialized successfully")
	return client, nil
}

// SetDatabaseClient replaces the global database client
func SetDatabaseClient(client *database.Client) {
	dbClientMu.Lock()
	defer dbClientMu.Unlock()
	globalDBClient = client
}

// GetDatabaseClient returns the global database client
func GetDatabaseClient() *database.Client {
	dbClientMu.Lock()
	defer dbClientMu.Unlock()
	return globalDBClient
}

// CloseDatabaseClient closes the global database client
// This should be called during application shutdown
func CloseDatabaseClient() error {
	dbClientMu.Lock()
	defer dbClientMu.Unlock()

	if globalDBClient == nil {
		return nil
	}
	if err := globalDBClient.Close(); err != nil {
		utils.Logger.Error("Failed to close database client",
			zap.Error(err),
		)
		return err
	}
	globalDBClient = nil
	return nil
}

// DatabaseMiddleware answers 503 while the database client cannot be opened
func DatabaseMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := InitDatabaseClient(r.Context()); err != nil {
			http.Error(w, "Database not available", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}
