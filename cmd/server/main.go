package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/kindred/internal/api"
	"github.com/Harshitk-cp/kindred/internal/config"
	"github.com/Harshitk-cp/kindred/internal/redisdb"
	"github.com/Harshitk-cp/kindred/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	_ = config.Load()

	logger, err := config.NewLogger()
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("falling back to info logging", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	dbURL := config.DatabaseURL()
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("failed to ping database", zap.Error(err))
	}
	logger.Info("connected to database")

	if err := store.Migrate(ctx, pool, config.MigrationsPath(), logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	rdb, err := redisdb.Connect(ctx, config.RedisAddr(), config.RedisPassword(), config.RedisDB())
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer func() { _ = rdb.Close() }()
	logger.Info("connected to redis", zap.String("addr", config.RedisAddr()))

	app, err := api.NewApp(pool, rdb, logger)
	if err != nil {
		logger.Fatal("failed to build app", zap.Error(err))
	}

	// Start background services
	app.Sweeper.Start()

	addr := config.ServerAddr()
	srv := &http.Server{
		Addr:    addr,
		Handler: app.Router,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// Stop background services once no request can enqueue more work
	app.Sweeper.Stop()
	app.Evolution.Flush()

	logger.Info("server stopped")
}
