package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/task-lobby/internal/api"
	"github.com/terra-clan/task-lobby/internal/catalog"
	"github.com/terra-clan/task-lobby/internal/config"
	"github.com/terra-clan/task-lobby/internal/refresher"
	"github.com/terra-clan/task-lobby/internal/selection"
	"github.com/terra-clan/task-lobby/internal/sources"
	"github.com/terra-clan/task-lobby/internal/stats"
	"github.com/terra-clan/task-lobby/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting task-lobby",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"catalog_source", cfg.Catalog.Source,
	)

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
	})
	if err != nil {
		slog.Error("failed to create database repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("database connected successfully")

	slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
	if err := storage.RunMigrations(initCtx, repo.Pool(), cfg.Database.MigrationsDir); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	if cfg.Catalog.SeedDir != "" {
		if _, err := catalog.Seed(initCtx, cfg.Catalog.SeedDir, repo); err != nil {
			slog.Error("failed to seed catalog", "dir", cfg.Catalog.SeedDir, "error", err)
			os.Exit(1)
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(initCtx).Err(); err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	// Catalog sources
	registry := sources.NewRegistry()
	registry.Register(repo)
	registry.Register(sources.NewHTTPSource(cfg.Upstream.BaseURL, cfg.Upstream.Timeout))
	registry.Register(catalog.NewLoader(cfg.Catalog.Dir))
	if cfg.Catalog.PlatformDSN != "" {
		platform, err := sources.NewPlatformSource(cfg.Catalog.PlatformDSN)
		if err != nil {
			slog.Error("failed to open platform database", "error", err)
			os.Exit(1)
		}
		defer platform.Close()
		registry.Register(platform)
	}

	source, err := registry.Get(cfg.Catalog.Source)
	if err != nil {
		slog.Error("failed to select catalog source", "error", err)
		os.Exit(1)
	}
	for name, err := range registry.HealthCheckAll(initCtx) {
		if err != nil {
			slog.Warn("catalog source unhealthy", "source", name, "error", err)
		}
	}

	statsClient := stats.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Timeout,
		stats.NewRedisCache(redisClient, cfg.Upstream.StatsTTL))

	catalogService := catalog.NewService(source, cfg.Catalog.Tags)
	manager := selection.NewManager(catalogService,
		selection.NewRedisStore(redisClient, cfg.Selection.IdleTTL), statsClient)
	catalogService.OnRefresh(func(ctx context.Context) {
		manager.ResetAll(ctx)
	})

	// Start without a catalog rather than not at all; /ready reports it
	if err := catalogService.Refresh(initCtx); err != nil {
		slog.Warn("initial catalog load failed", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := refresher.NewWorker(catalogService, manager, refresher.Config{
		RefreshInterval: cfg.Catalog.RefreshInterval,
		SweepInterval:   cfg.Selection.SweepInterval,
		IdleTTL:         cfg.Selection.IdleTTL,
	})
	worker.Start(ctx)

	server := api.NewServer(cfg.Server, catalogService, manager, statsClient, repo)
	server.AddReadinessCheck("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	if checker, ok := source.(sources.Checker); ok && cfg.Catalog.Source != config.SourcePostgres {
		server.AddReadinessCheck(cfg.Catalog.Source, checker.HealthCheck)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	cancel()
	worker.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("task-lobby stopped")
}
