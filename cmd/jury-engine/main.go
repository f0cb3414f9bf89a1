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

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/terra-clan/jury-engine/internal/api"
	"github.com/terra-clan/jury-engine/internal/cache"
	"github.com/terra-clan/jury-engine/internal/campaign"
	"github.com/terra-clan/jury-engine/internal/config"
	"github.com/terra-clan/jury-engine/internal/deadline"
	"github.com/terra-clan/jury-engine/internal/health"
	"github.com/terra-clan/jury-engine/internal/models"
	"github.com/terra-clan/jury-engine/internal/notify"
	"github.com/terra-clan/jury-engine/internal/storage"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	configDir := os.Getenv("JURY_CONFIG_DIR")
	if configDir == "" {
		configDir = "."
	}
	cfg, err := config.Load(configDir)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.Info("starting jury-engine",
		"env", cfg.Env,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Initialize database repository
	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxConns,
	})
	if err != nil {
		slog.Error("failed to create database repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("database connected successfully")

	// Run database migrations
	slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
	if err := storage.RunMigrations(initCtx, repo.Pool(), storage.MigrationSource(cfg.Database.MigrationsDir)); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Round listing cache
	var roundCache cache.Cache = cache.Noop{}
	if cfg.Redis.Address != "" {
		redisCache, err := cache.NewRedisCache(initCtx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			slog.Error("failed to connect to redis", "address", cfg.Redis.Address, "error", err)
			os.Exit(1)
		}
		roundCache = redisCache
		slog.Info("redis cache enabled", "address", cfg.Redis.Address, "ttl", cfg.Redis.TTL)
	}
	defer roundCache.Close()

	// Readiness checks
	checks := health.NewRegistry()
	checks.Register("postgres", health.CheckFunc(repo.Ping))
	if cfg.Redis.Address != "" {
		checks.Register("redis", roundCache)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Changes travel through Postgres so every instance hears them
	notifier := notify.NewPostgresNotifier(repo)

	manager := campaign.NewService(repo,
		campaign.WithCache(roundCache),
		campaign.WithNotifier(notifier),
		campaign.WithMetrics(campaign.NewMetrics(registry)),
		campaign.WithLogger(logger),
	)

	if cfg.Bootstrap.Organizer != "" {
		if err := bootstrapOrganizer(initCtx, repo, cfg.Bootstrap); err != nil {
			slog.Error("failed to bootstrap organizer", "error", err)
			os.Exit(1)
		}
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := api.NewHub()

	// Relay notifications from every instance to local websocket clients
	listener := notify.NewListener(cfg.Database.DSN, logger)
	go func() {
		if err := listener.Run(ctx, hub.Broadcast); err != nil {
			slog.Error("notification listener stopped", "error", err)
		}
	}()

	// Start deadline watcher
	watcher := deadline.NewWatcher(manager, notifier, cfg.Deadline.Interval)
	watcher.Start(ctx)

	// Setup HTTP server
	server := api.NewServer(cfg.Server, manager, repo, checks, hub, registry)
	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("jury-engine stopped")
}

// bootstrapOrganizer makes sure the configured organizer exists with organizer rights
func bootstrapOrganizer(ctx context.Context, repo storage.Repository, cfg config.BootstrapConfig) error {
	u := &models.User{
		ID:        uuid.New().String(),
		Username:  cfg.Organizer,
		ApiKey:    cfg.APIKey,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.UpsertOrganizer(ctx, u); err != nil {
		return err
	}
	slog.Info("bootstrap organizer ready", "username", u.Username, "key_prefix", u.MaskedApiKey())
	return nil
}
