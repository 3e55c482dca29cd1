// Package main initializes and starts the task sync server, setting up
// configuration, logging, storage, services, handlers and optional TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/todosync/internal/auth"
	"github.com/atinyakov/todosync/internal/config"
	"github.com/atinyakov/todosync/internal/db"
	"github.com/atinyakov/todosync/internal/logger"
	"github.com/atinyakov/todosync/internal/repository"
	"github.com/atinyakov/todosync/internal/server/handler/http"
	"github.com/atinyakov/todosync/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		taskRepo service.TxTaskStore
		userRepo service.UserStore
	)
	if options.DatabaseDSN == "" {
		zapLogger.Warn("no database DSN configured, tasks are kept in memory")
		taskRepo = repository.NewMemoryTaskRepository()
		userRepo = repository.NewMemoryUserRepository()
	} else {
		// Initialize PostgreSQL connection.
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			zapLogger.Fatal("cannot init database", zap.Error(err))
		}
		defer postgresDB.Close()

		// Physically remove long soft-deleted tasks.
		db.StartSoftDeleteCleaner(ctx, postgresDB,
			options.PurgeInterval.Duration,
			options.PurgeRetention.Duration,
			zapLogger,
		)

		taskRepo = repository.NewPostgresTaskRepository(postgresDB)
		userRepo = repository.NewPostgresUserRepository(postgresDB)
	}

	// Initialize business-logic services.
	tokens := auth.NewTokens(options.JWTSecret, options.TokenTTL.Duration)
	authService := service.NewAuthService(userRepo, tokens)
	taskService := service.NewTaskService(taskRepo)
	reconciler := service.NewReconciler(taskRepo)

	// Build the router with middleware and routes.
	router := http.NewRouter(
		&http.AuthHandler{AuthService: authService},
		&http.TaskHandler{TaskService: taskService},
		&http.SyncHandler{SyncService: reconciler},
		tokens,
		zapLogger,
	)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	var err error
	if options.TLSCert != "" && options.TLSKey != "" {
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
