// Package main is the entry point for the pharmledger background worker.
// It runs the asynq task server, the periodic scheduler and database housekeeping.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"pharmledger/internal/app"
	"pharmledger/internal/config"
	"pharmledger/internal/core/types"
	"pharmledger/internal/infrastructure/cache"
	"pharmledger/internal/infrastructure/queue"
	"pharmledger/internal/infrastructure/storage/postgres"
	"pharmledger/pkg/logger"
)

const writeOffSpec = "0 2 * * *"

func main() {
	cfg, err := config.Load(logger.Default())
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

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	log.Infow("starting pharmledger worker", "timezone", types.BusinessLocation().String())

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.URL).WithSizes(cfg.Database.MaxConnections, cfg.Database.MinConnections))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool).WithStatementTimeout(cfg.Database.StatementTimeout)

	opts := app.OptionsFromConfig(cfg)
	if client, err := cache.NewClient(ctx, cfg.Redis); err != nil {
		log.Warnw("redis cache unavailable, dashboard will not be invalidated", "error", err)
	} else {
		defer client.Close()
		opts.Cache = cache.New(client, cfg.Redis.DashboardTTL)
	}

	services, err := app.NewServices(app.PostgresRepositories(txManager, nil), opts)
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}

	redisOpt := queue.RedisOpt(cfg.Redis)

	// --- Task server ---
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     cfg.Asynq.Concurrency,
		Queues:          cfg.Asynq.Queues,
		ShutdownTimeout: cfg.Asynq.ShutdownTimeout,
		Logger:          log.WithComponent("asynq"),
	})
	mux := asynq.NewServeMux()
	queue.NewProcessor(services.Alerts, services.Medicines, services.Reports).Register(mux)
	if err := srv.Start(mux); err != nil {
		log.Fatalw("failed to start task server", "error", err)
	}

	// --- Scheduler ---
	scheduler, err := newScheduler(redisOpt, cfg.Asynq.ScanInterval, log)
	if err != nil {
		log.Fatalw("failed to register periodic tasks", "error", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalw("failed to start scheduler", "error", err)
	}

	// --- Housekeeping ---
	housekeeper := NewHousekeeper(postgres.NewIdempotencyStore(txManager, 0), time.Hour, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		housekeeper.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()
	scheduler.Shutdown()
	srv.Shutdown()

	wg.Wait()
	log.Info("worker stopped")
}

// newScheduler registers the periodic alert scan and the nightly expiry write-off.
// Cron specs run in the business timezone.
func newScheduler(opt asynq.RedisConnOpt, scanInterval time.Duration, log *logger.Logger) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: types.BusinessLocation(),
		Logger:   log.WithComponent("scheduler"),
	})

	if scanInterval > 0 {
		task, err := queue.NewScanAlertsTask(queue.TriggerSchedule)
		if err != nil {
			return nil, err
		}
		if _, err := scheduler.Register("@every "+scanInterval.String(), task); err != nil {
			return nil, fmt.Errorf("register %s: %w", queue.TypeScanAlerts, err)
		}
	}

	task, err := queue.NewWriteOffExpiredTask(queue.TriggerSchedule)
	if err != nil {
		return nil, err
	}
	if _, err := scheduler.Register(writeOffSpec, task); err != nil {
		return nil, fmt.Errorf("register %s: %w", queue.TypeWriteOffExpired, err)
	}

	log.Infow("periodic tasks registered", "scan_interval", scanInterval, "write_off", writeOffSpec)
	return scheduler, nil
}

// ExpiredKeyCleaner removes idempotency keys past their TTL.
type ExpiredKeyCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Housekeeper runs periodic database cleanup.
type Housekeeper struct {
	keys     ExpiredKeyCleaner
	interval time.Duration
	log      *logger.Logger
}

func NewHousekeeper(keys ExpiredKeyCleaner, interval time.Duration, log *logger.Logger) *Housekeeper {
	return &Housekeeper{
		keys:     keys,
		interval: interval,
		log:      log.WithComponent("housekeeper"),
	}
}

// Run cleans up once at start and then on every tick until ctx is done.
func (h *Housekeeper) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.cleanupIdempotency(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.cleanupIdempotency(ctx)
		}
	}
}

func (h *Housekeeper) cleanupIdempotency(ctx context.Context) {
	n, err := h.keys.CleanupExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			h.log.Errorw("idempotency cleanup failed", "error", err)
		}
		return
	}
	if n > 0 {
		h.log.Infow("cleaned up idempotency keys", "count", n)
	}
}
