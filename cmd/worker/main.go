package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/storefront/pkg/app"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting worker",
		zap.String("reminder_backend", cfg.Reminder.Backend),
		zap.Duration("reconcile_interval", cfg.Payment.ReconcileInterval))

	if cfg.Reminder.Backend != "redis" {
		log.Warn("Reminder backend is not redis; reminders armed by the API are not visible to this worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to build application", zap.Error(err))
	}

	if err := a.Announce(ctx, "worker", cfg.Server.Port); err != nil {
		log.Warn("Failed to register in etcd, continuing without service discovery", zap.Error(err))
	}

	health := a.HealthServer(ctx)
	go func() {
		if err := health.Start(); err != nil {
			log.Error("Health server stopped", zap.Error(err))
		}
	}()

	if err := a.RunBackground(ctx); err != nil {
		log.Error("Background loop failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	health.Stop()
	if err := a.Close(shutdownCtx); err != nil {
		log.Warn("Failed to release resources", zap.Error(err))
	}
	log.Info("Worker stopped")
}
