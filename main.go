package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"api/lambdaproxy"
	"api/middleware"
	"api/redis"
	"api/server"
	"api/utils"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	exportSchema := flag.Bool("schema", false, "Export GraphQL schema to schema.graphql")
	migrate := flag.Bool("migrate", false, "Create the sessions table and exit")
	issueToken := flag.String("issue-token", "", "Open a session for the given user id and print its bearer token")
	email := flag.String("email", "", "Email recorded with -issue-token")
	flag.Parse()

	// Load environment variables BEFORE initializing logger
	if err := godotenv.Load(".env"); err != nil {
		// Use fmt for initial logging since logger is not initialized yet
		fmt.Printf("No .env file found, using environment variables: %v\n", err)
	}

	// Initialize logger AFTER loading environment variables
	utils.InitLogger()
	defer utils.Logger.Sync()

	switch {
	case *exportSchema:
		if err := server.ExportSchema("."); err != nil {
			utils.Logger.Fatal("Error exporting schema",
				zap.Error(err),
			)
		}
		return
	case *migrate:
		runMigrate()
		return
	case *issueToken != "":
		runIssueToken(*issueToken, *email)
		return
	}

	if utils.IsLambda() {
		utils.Logger.Info("Starting Lambda handler")
		lambdaproxy.NewHandler(func() (http.Handler, error) {
			return server.SetupRouter()
		}).Start()
		return
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	runWebServerWithGracefulShutdown(shutdown)
}

func runMigrate() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	defer closeDatabase()

	store, err := server.NewSessionStore(ctx)
	if err != nil {
		utils.Logger.Fatal("Failed to open session store", zap.Error(err))
	}
	if err := store.Migrate(ctx); err != nil {
		utils.Logger.Fatal("Migration failed", zap.Error(err))
	}
	utils.Logger.Info("Migration complete")
}

func runIssueToken(userID, email string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	defer closeDatabase()

	sessions, err := server.NewSessionResolver(ctx)
	if err != nil {
		utils.Logger.Fatal("Failed to open session store", zap.Error(err))
	}
	token, s, err := sessions.SignIn(ctx, userID, email)
	if err != nil {
		utils.Logger.Fatal("Failed to issue token", zap.Error(err))
	}
	utils.Logger.Info("Session opened",
		zap.String("session_id", s.ID.String()),
		zap.Time("expires_at", s.ExpiresAt),
	)
	fmt.Println(token)
}

func runWebServerWithGracefulShutdown(shutdown chan os.Signal) {
	// Setup router with GraphQL server
	router, err := server.SetupRouter()
	if err != nil {
		utils.Logger.Fatal("Failed to setup router",
			zap.Error(err))
	}

	port := os.Getenv("APP_CORE_PORT")
	if port == "" {
		port = "9010" // Default port if not specified
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.Logger.Info(fmt.Sprintf("Server started on port %s", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Fatal("Server startup failed",
				zap.Error(err),
			)
		}
	}()

	// Ожидаем сигнал завершения
	<-shutdown
	utils.Logger.Info("Shutdown signal received, gracefully shutting down...")

	// Создаем единый контекст с таймаутом для всего процесса shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Сначала останавливаем HTTP-сервер, чтобы текущие запросы еще видели БД
	serverCtx, serverCancel := context.WithTimeout(ctx, 15*time.Second)
	defer serverCancel()

	if err := srv.Shutdown(serverCtx); err != nil {
		utils.Logger.Error("Server shutdown error",
			zap.Error(err),
		)
	} else {
		utils.Logger.Info("Server shutdown complete")
	}
	flushLogs()

	// 2. Закрываем соединения с БД
	closeDatabase()

	// 3. Закрываем Redis-соединение
	if err := redis.CloseCacheService(); err != nil {
		utils.Logger.Error("Redis shutdown error",
			zap.Error(err),
		)
	} else {
		utils.Logger.Info("Redis shutdown complete")
	}

	// Финальный сброс логов
	flushLogs()
	utils.Logger.Info("Graceful shutdown complete")
	flushLogs()
}

func closeDatabase() {
	if err := middleware.CloseDatabaseClient(); err != nil {
		utils.Logger.Error("Database shutdown error",
			zap.Error(err),
		)
	} else {
		utils.Logger.Info("Database shutdown complete")
	}
}

func flushLogs() {
	if err := utils.Logger.Sync(); err != nil {
		fmt.Fprintf(os.Stderr, "Error flushing logs: %v\n", err)
	}
}
