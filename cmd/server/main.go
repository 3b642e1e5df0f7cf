// Package main is the entry point for the pharmledger API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"pharmledger/internal/app"
	"pharmledger/internal/config"
	"pharmledger/internal/core/types"
	v1 "pharmledger/internal/infrastructure/http/v1"
	"pharmledger/internal/infrastructure/cache"
	"pharmledger/internal/infrastructure/queue"
	"pharmledger/internal/infrastructure/storage/postgres"
	"pharmledger/pkg/logger"
)

func main() {
	bootLog := logger.Default()
	cfg, err := config.Load(bootLog)
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	types.SetBusinessLocation(cfg.App.Location())

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting pharmledger server",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", types.BusinessLocation().String(),
	)

	// --- Database ---
	if cfg.Database.AutoMigrate {
		err := postgres.RunMigrationsWithRetry(ctx, postgres.MigrationConfig{
			DatabaseURL:      cfg.Database.URL,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, cfg.Database.MigrateRetries)
		if err != nil {
			log.Fatalw("failed to apply migrations", "error", err)
		}
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.URL).WithSizes(cfg.Database.MaxConnections, cfg.Database.MinConnections)
	if cfg.Database.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	}
	if cfg.Database.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool).WithStatementTimeout(cfg.Database.StatementTimeout)
	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to create audit service", "error", err)
	}

	opts := app.OptionsFromConfig(cfg)
	routerCfg := v1.RouterConfig{
		Logger:         log,
		DB:             txManager,
		Pool:           pool,
		Idempotency:    postgres.NewIdempotencyStore(txManager, 0),
		Audit:          auditService,
		LoginRateLimit: cfg.Security.LoginRateLimit,
		LoginRateBurst: cfg.Security.LoginRateBurst,
		Version:        cfg.App.Version,
		Debug:          cfg.IsDevelopment(),
	}

	// --- Redis cache (optional) ---
	if cfg.Redis.Addr != "" {
		client, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Warnw("redis unavailable, dashboard caching disabled", "error", err)
		} else {
			defer client.Close()
			dashboardCache := cache.New(client, cfg.Redis.DashboardTTL)
			opts.Cache = dashboardCache
			routerCfg.Cache = dashboardCache
			log.Infow("dashboard cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.DashboardTTL)
		}
	}

	// --- Task queue (optional) ---
	if cfg.Asynq.Enabled && cfg.Redis.Addr != "" {
		tasks := queue.NewClient(queue.RedisOpt(cfg.Redis))
		defer tasks.Close()
		opts.Scheduler = tasks
		routerCfg.ScanQueue = tasks
		log.Info("alert scans are queued after each sale")
	}

	services, err := app.NewServices(app.PostgresRepositories(txManager, auditService), opts)
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}
	routerCfg.Services = services

	if cfg.Security.AdminPassword != "" {
		created, err := services.Auth.EnsureAdmin(ctx, cfg.Security.AdminEmail, cfg.Security.AdminPassword)
		if err != nil {
			log.Fatalw("failed to bootstrap administrator", "error", err)
		}
		if created {
			log.Infow("administrator account created", "email", cfg.Security.AdminEmail)
		}
	}

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      v1.NewRouter(routerCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
