package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/readar/backend/config"
	httpDelivery "github.com/readar/backend/internal/delivery/http"
	"github.com/readar/backend/internal/domain"
	"github.com/readar/backend/internal/infrastructure/archive"
	"github.com/readar/backend/internal/infrastructure/logging"
	"github.com/readar/backend/internal/infrastructure/ratelimit"
	"github.com/readar/backend/internal/infrastructure/store"
	"github.com/readar/backend/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := logging.New(cfg.Log.Level)
	logger.Info("starting Readar backend",
		"version", "1.0.0",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"store", cfg.Store.Type)

	// Initialize infrastructure dependencies
	var repo domain.ListingRepository
	switch cfg.Store.Type {
	case "postgres":
		pg, err := store.NewPostgresStore(cfg.Store.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open postgres store: %w", err)
		}
		defer pg.Close()
		repo = pg
	default:
		repo = store.NewMemoryStore()
		logger.Warn("using in-memory listing store, data is lost on restart")
	}

	var uploads domain.UploadArchive
	if cfg.Archive.Endpoint != "" {
		minioArchive, err := archive.NewMinioArchive(archive.Config{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			UseSSL:    cfg.Archive.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("open upload archive: %w", err)
		}
		uploads = minioArchive
		logger.Info("upload archive enabled", "endpoint", cfg.Archive.Endpoint, "bucket", cfg.Archive.Bucket)
	}

	var limiter httpDelivery.Limiter
	if cfg.RateLimit.RedisURL != "" {
		redisLimiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RateLimit.RedisURL, "", cfg.RateLimit.PerIP, cfg.RateLimit.Window)
		if err != nil {
			return fmt.Errorf("open rate limiter: %w", err)
		}
		defer redisLimiter.Close()
		limiter = redisLimiter
		logger.Info("rate limiting enabled", "per_ip", cfg.RateLimit.PerIP, "window", cfg.RateLimit.Window)
	}

	// Initialize usecase layer
	debug := cfg.Matching.Debug || cfg.Server.Environment == "development"
	listings := usecase.NewListingService(repo)
	matcher := usecase.NewMatchingService(usecase.MatchConfig{
		Threshold:          cfg.Matching.Threshold,
		EnableDebugLogging: debug,
		Logger:             logger,
	})
	imports := usecase.NewImportService(listings, matcher, uploads, usecase.ImportServiceConfig{
		EnableDebugLogging: debug,
	})
	logger.Info("matching configured", "threshold", matcher.Threshold(), "debug", debug)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(listings, imports, cfg.Server.MaxUploadBytes)
	router := httpDelivery.SetupRouter(cfg, handler, limiter)

	addr := ":" + cfg.Server.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("server stopped")
		return nil
	case err := <-serverErr:
		return err
	}
}
