package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AakashRadical/rg-bulk-editor/internal/adapter/handler"
	"github.com/AakashRadical/rg-bulk-editor/internal/adapter/shopify"
	"github.com/AakashRadical/rg-bulk-editor/internal/adapter/storage"
	"github.com/AakashRadical/rg-bulk-editor/internal/config"
	"github.com/AakashRadical/rg-bulk-editor/internal/core/domain"
	"github.com/AakashRadical/rg-bulk-editor/internal/core/service"
	"github.com/AakashRadical/rg-bulk-editor/internal/port"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("failed to connect mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	// Adapters
	redisAdapter := storage.NewRedisAdapter(rdb)
	mysqlAdapter := storage.NewMySQLAdapter(db)
	catalog := shopify.NewClient(shopify.Config{
		Shop:        cfg.ShopifyShop,
		AccessToken: cfg.ShopifyAccessToken,
		APIVersion:  cfg.ShopifyAPIVersion,
	}, logger)

	var events port.EventPublisher
	var kafkaPublisher *storage.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher = storage.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		events = kafkaPublisher
		logger.Info("kafka publisher enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	// Services
	reconciler := service.NewReconcileService(catalog, redisAdapter, mysqlAdapter, events, logger, cfg.QueueSize)
	products := service.NewProductService(catalog, reconciler, logger)

	// Worker pool draining the bulk queue
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, reconciler.GetQueue(), reconciler, logger)
		}(i)
	}
	logger.Info("started workers", zap.Int("count", cfg.WorkerCount))

	// HTTP server
	httpHandler := handler.NewHTTPHandler(reconciler, products, catalog, mysqlAdapter, logger)
	mux := http.NewServeMux()
	httpHandler.Register(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("HTTP server stopped")

	// Close the bulk queue and wait for in-flight reconciliations
	reconciler.Close()
	wg.Wait()
	logger.Info("workers stopped")

	if kafkaPublisher != nil {
		kafkaPublisher.Close()
	}
	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}

func workerLoop(id int, queue <-chan domain.VariantInventoryIntent, reconciler *service.ReconcileService, logger *zap.Logger) {
	for intent := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

		result, err := reconciler.Reconcile(ctx, intent)
		switch {
		case err != nil:
			logger.Error("worker reconciliation failed",
				zap.Int("worker", id),
				zap.String("inventory_item_id", intent.InventoryItemID),
				zap.Error(err),
			)
		case !result.Succeeded():
			logger.Warn("worker reconciliation did not succeed",
				zap.Int("worker", id),
				zap.String("inventory_item_id", intent.InventoryItemID),
				zap.String("reason", string(result.Reason)),
				zap.String("detail", result.Detail),
			)
		default:
			logger.Info("worker reconciled item",
				zap.Int("worker", id),
				zap.String("inventory_item_id", intent.InventoryItemID),
				zap.Int("quantity", intent.Quantity),
			)
		}

		cancel()
	}
}
