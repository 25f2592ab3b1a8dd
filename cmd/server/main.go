package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	inventoryapp "github.com/erp/warehouse/internal/application/inventory"
	"github.com/erp/warehouse/internal/domain/inventory"
	"github.com/erp/warehouse/internal/domain/shared"
	"github.com/erp/warehouse/internal/infrastructure/cache"
	"github.com/erp/warehouse/internal/infrastructure/config"
	"github.com/erp/warehouse/internal/infrastructure/logger"
	"github.com/erp/warehouse/internal/infrastructure/persistence"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// alertInterval is how often the alert monitor scans for low stock and
// expiring batches.
const alertInterval = 15 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting warehouse service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Database with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	// Redis is optional; without it the snapshot cache is a no-op and
	// idempotency state stays in process memory.
	var (
		snapshotCache    inventoryapp.SnapshotCache = inventoryapp.NewNoOpSnapshotCache()
		idempotencyStore shared.IdempotencyStore
	)
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()

		snapshotCache = cache.NewRedisSnapshotCache(redisClient, cfg.Cache.SnapshotTTL)
		idempotencyStore = cache.NewRedisIdempotencyStoreWithClient(redisClient, "")
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	} else {
		store := cache.NewInMemoryIdempotencyStore()
		defer func() {
			_ = store.Close()
		}()
		idempotencyStore = store
		log.Info("Redis disabled, using in-memory idempotency store")
	}

	// Repositories and transaction scope
	snapshotRepo := persistence.NewGormSnapshotRepository(db.DB)
	batchRepo := persistence.NewGormBatchRepository(db.DB)
	transactionRepo := persistence.NewGormTransactionRepository(db.DB)
	stockCountRepo := persistence.NewGormStockCountRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	codes := inventory.NewCodeGenerator()

	// Application services
	snapshotService := inventoryapp.NewSnapshotService(
		txScope, snapshotRepo, transactionRepo, snapshotCache, idempotencyStore, codes, log,
	)
	batchService := inventoryapp.NewBatchService(
		txScope, batchRepo, snapshotCache, idempotencyStore, codes, log,
	)
	stockCountService := inventoryapp.NewStockCountService(
		txScope, snapshotRepo, stockCountRepo, snapshotCache, codes, log,
	)
	stockCountService.SetCycleCountSize(cfg.StockCount.CycleCountSize)

	log.Info("Inventory services initialized",
		zap.Int("cycle_count_size", cfg.StockCount.CycleCountSize),
		zap.Int("expiry_alert_days", cfg.StockCount.ExpiryAlertDays),
	)

	// Background alert monitor: logs low-stock snapshots and expiring
	// batches across all warehouses on a fixed cadence.
	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	go runAlertMonitor(monitorCtx, snapshotService, batchService, cfg.StockCount.ExpiryAlertDays, log)

	// Block until shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	stopMonitor()
	log.Info("Service exited gracefully")
}

// runAlertMonitor periodically scans for low-stock snapshots and batches
// nearing expiry, and logs what it finds
func runAlertMonitor(
	ctx context.Context,
	snapshots *inventoryapp.SnapshotService,
	batches *inventoryapp.BatchService,
	expiryAlertDays int,
	log *zap.Logger,
) {
	ticker := time.NewTicker(alertInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			scanCtx, cancel := context.WithTimeout(ctx, time.Minute)

			lowStock, err := snapshots.LowStockAlerts(scanCtx, nil)
			if err != nil {
				log.Error("Low stock scan failed", zap.Error(err))
			} else if len(lowStock) > 0 {
				log.Warn("Items below minimum stock", zap.Int("count", len(lowStock)))
			}

			expiring, err := batches.ExpiryAlerts(scanCtx, expiryAlertDays, nil)
			if err != nil {
				log.Error("Expiry scan failed", zap.Error(err))
			} else if len(expiring) > 0 {
				log.Warn("Batches nearing expiry",
					zap.Int("count", len(expiring)),
					zap.Int("within_days", expiryAlertDays),
				)
			}

			cancel()
		}
	}
}
