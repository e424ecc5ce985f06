package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Harshitk-cp/verity/internal/api"
	"github.com/Harshitk-cp/verity/internal/config"
	"github.com/Harshitk-cp/verity/internal/oracle"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	if err := config.Load(); err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	provider := config.OracleProvider()
	client, err := oracle.NewClient(provider, config.OracleURL())
	if err != nil {
		logger.Fatal("failed to initialize source oracle", zap.String("provider", provider), zap.Error(err))
	}
	logger.Info("source oracle initialized", zap.String("provider", provider))

	// All interrogation workers share one aggregate rate budget.
	src := oracle.NewRateLimited(client, config.OracleRPS(), config.OracleBurst())

	app, err := api.NewApp(src, logger)
	if err != nil {
		logger.Fatal("failed to build app", zap.Error(err))
	}

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
