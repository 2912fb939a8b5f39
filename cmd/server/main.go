package main

import (
	"context"
	"feedbacklens/internal/app"
	"feedbacklens/internal/config"
	"feedbacklens/internal/service"
	"feedbacklens/internal/transport/rest"
	"feedbacklens/internal/transport/ws"
	"feedbacklens/internal/watch"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// @title FeedbackLens API
// @version 1.0
// @description LLM-assisted analysis and evaluation of student feedback.
// @host localhost:8000
// @BasePath /api/v1
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer logger.Sync()

	if err := cfg.EnsureDirs(); err != nil {
		logger.Fatal("failed to create data directories", zap.Error(err))
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize", zap.Error(err))
	}
	defer application.Close(context.Background())

	logger.Info("model settings",
		zap.String("defaultModel", cfg.AI.DefaultModel),
		zap.Int("registeredModels", len(cfg.AI.Models)),
		zap.Bool("openaiConfigured", cfg.AI.IsEnabled(config.ProviderOpenAI)),
		zap.Bool("geminiConfigured", cfg.AI.IsEnabled(config.ProviderGemini)),
		zap.Bool("reportStore", application.Reports != nil),
	)

	// Initialize WebSocket hub (implements service.Broadcaster)
	wsHub := ws.NewHub(logger)
	defer wsHub.Close()
	application.Pipeline.SetBroadcaster(wsHub)

	datasets := watch.New(cfg.RawDataDir, logger)
	if err := datasets.Backfill(); err != nil {
		logger.Warn("failed to index raw data directory", zap.Error(err))
	}
	if cfg.EnableWatcher {
		if err := datasets.Start(ctx); err != nil {
			logger.Warn("raw data watcher not started", zap.Error(err))
		}
	}

	var authSvc *service.AuthService
	if cfg.Auth.Enabled {
		authSvc = service.NewAuthService(cfg.Auth)
		logger.Info("upload auth enabled", zap.String("username", cfg.Auth.Username))
	}

	container := &rest.Container{
		Config:        cfg,
		Pipeline:      application.Pipeline,
		AuthService:   authSvc,
		ReportService: application.Reports,
		Datasets:      datasets,
		WSHub:         wsHub,
		Logger:        logger,
	}

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: rest.NewRouter(container),
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("prefix", cfg.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("ListenAndServe failed", zap.Error(err))
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")
	stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
