package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/creatorhub/settlement-engine/internal/api"
	"github.com/creatorhub/settlement-engine/internal/config"
	"github.com/creatorhub/settlement-engine/internal/locks"
	"github.com/creatorhub/settlement-engine/internal/notify"
	"github.com/creatorhub/settlement-engine/internal/repository"
	"github.com/creatorhub/settlement-engine/internal/service"
	"github.com/creatorhub/settlement-engine/internal/telemetry"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize telemetry
	if err := telemetry.Init("settlement-engine"); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Logger.Info("Starting Settlement Engine")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.InitDB(db); err != nil {
		telemetry.Logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	// Initialize repositories
	events := repository.NewRevenueEventRepository(db)
	settlements := repository.NewSettlementRepository(db)
	withdrawals := repository.NewWithdrawalRepository(db)
	watermarks := repository.NewSweepWatermarkRepository(db)

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisURL,
	})
	locker := locks.NewRedisLocker(redisClient)

	// Kafka notification publisher
	notifier := notify.NewKafkaPublisher(cfg.KafkaBrokers)
	defer notifier.Close()

	// Initialize services
	recorder := service.NewRecorder(events, notifier, telemetry.Logger)
	aggregator := service.NewAggregator(events, settlements, notifier, telemetry.Logger)
	manager := service.NewWithdrawalManager(withdrawals, settlements, locker, notifier, telemetry.Logger)
	scheduler := service.NewScheduler(events, watermarks, aggregator, locker, notifier, service.SchedulerConfig{
		Concurrency:                 cfg.SweepConcurrency,
		SettleTimeout:               cfg.SettleTimeout,
		AutoWithdrawal:              cfg.AutoWithdrawal,
		MinimumAutoWithdrawalAmount: cfg.MinimumAutoWithdrawalAmount,
	}, telemetry.Logger)

	// Start consuming revenue events
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	consumer := service.NewConsumer(recorder, telemetry.Logger)
	go consumer.Run(consumerCtx, cfg.KafkaBrokers)

	// Setup HTTP server
	r := api.NewRouter(recorder, aggregator, scheduler, manager, settlements)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		telemetry.Logger.Info("Settlement Engine starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("Shutting down server...")
	stopConsumer()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	telemetry.Logger.Info("Server exited")
}
