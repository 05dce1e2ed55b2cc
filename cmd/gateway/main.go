package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/storefront/gateway"
	"github.com/example/storefront/pkg/app"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/logger"
	"go.uber.org/zap"
)

// @title                       Storefront API
// @version                     1.0
// @description                 Carts, wishlists, orders, payments and catalog for the storefront and admin dashboard.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
func main() {
	// Load config
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	log, err := logger.New(&cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting API Gateway",
		zap.Int("port", cfg.Gateway.Port),
		zap.String("host", cfg.Gateway.Host),
		zap.String("storage", cfg.Storage.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to build application", zap.Error(err))
	}

	if err := a.Announce(ctx, "api", cfg.Gateway.Port); err != nil {
		log.Warn("Failed to register in etcd, continuing without service discovery", zap.Error(err))
	}

	// Create gateway
	gw := gateway.NewGateway(cfg, log, a.Tokens, a.Services, a.Checks)
	gw.SetupRoutes()

	health := a.HealthServer(ctx)
	errCh := make(chan error, 3)
	go func() {
		if err := health.Start(); err != nil {
			errCh <- fmt.Errorf("health server: %w", err)
		}
	}()
	go func() {
		if err := gw.Start(); err != nil {
			errCh <- fmt.Errorf("gateway: %w", err)
		}
	}()
	bgDone := make(chan struct{})
	if cfg.Worker.Embedded {
		go func() {
			defer close(bgDone)
			if err := a.RunBackground(ctx); err != nil {
				errCh <- fmt.Errorf("background: %w", err)
			}
		}()
	} else {
		close(bgDone)
	}

	log.Info("Gateway started successfully")

	// Wait for interrupt signal
	select {
	case <-ctx.Done():
		log.Info("Received shutdown signal")
	case err := <-errCh:
		log.Error("Gateway error", zap.Error(err))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := gw.Shutdown(shutdownCtx); err != nil {
		log.Warn("Gateway shutdown incomplete", zap.Error(err))
	}
	health.Stop()

	// Background loops still use the stores until they return.
	select {
	case <-bgDone:
	case <-shutdownCtx.Done():
		log.Warn("Background loops did not stop before the shutdown deadline")
	}
	if err := a.Close(shutdownCtx); err != nil {
		log.Warn("Failed to release resources", zap.Error(err))
	}

	log.Info("Gateway stopped")
}
