package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-pos-sales/internal/config"
	kafkax "github.com/ariefcatur/go-pos-sales/internal/kafka"
	"github.com/ariefcatur/go-pos-sales/internal/logging"
	"github.com/ariefcatur/go-pos-sales/internal/postgres"
	"github.com/ariefcatur/go-pos-sales/internal/redisx"
	"github.com/ariefcatur/go-pos-sales/internal/sales"
	"github.com/ariefcatur/go-pos-sales/internal/salesworker"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.ServiceName+"-worker")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.PostgresDSN == "" || cfg.RedisAddr == "" {
		logger.Fatal("sales worker needs POSTGRES_DSN and REDIS_ADDR")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMax)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	repo := &sales.Repo{DB: db}
	svc := &salesworker.Service{
		Recorder: sales.NewRecorder(repo, repo, &redisx.HotSaleCounter{RDB: rdb},
			sales.WithLocation(cfg.Location()),
			sales.WithGuard(&redisx.Dedup{RDB: rdb}),
		),
		Logger: logger,
	}

	cons := kafkax.NewConsumer(cfg.Brokers(), cfg.WorkerGroup, sales.TopicOrderPlaced, cfg.WorkerConcurrency, logger,
		kafkax.WithRetry(cfg.WorkerRetries, cfg.WorkerRetryBackoff))
	var consumeErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("sales worker started",
			zap.String("group", cfg.WorkerGroup),
			zap.String("topic", sales.TopicOrderPlaced),
			zap.Int("workers", cfg.WorkerConcurrency))
		if err := cons.Start(ctx, svc.HandleOrderPlaced); err != nil {
			consumeErr = err
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down consumer...")
	cancel()
	<-done
	if consumeErr != nil {
		// Restart resumes from the last committed offset.
		logger.Fatal("consumer exit", zap.Error(consumeErr))
	}
}
