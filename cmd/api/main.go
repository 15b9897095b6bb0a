package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-pos-sales/internal/config"
	"github.com/ariefcatur/go-pos-sales/internal/httpx"
	kafkax "github.com/ariefcatur/go-pos-sales/internal/kafka"
	"github.com/ariefcatur/go-pos-sales/internal/logging"
	"github.com/ariefcatur/go-pos-sales/internal/observability"
	"github.com/ariefcatur/go-pos-sales/internal/postgres"
	"github.com/ariefcatur/go-pos-sales/internal/redisx"
	"github.com/ariefcatur/go-pos-sales/internal/sales"
	"github.com/ariefcatur/go-pos-sales/internal/sales/memory"
	"github.com/ariefcatur/go-pos-sales/internal/tasks"
)

type stores struct {
	uow     sales.UnitOfWork
	reader  sales.OrderReader
	catalog sales.Catalog
	details sales.DetailStore
	health  []httpx.HealthCheck
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.ServiceName)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores
	st, closeDB := buildStores(ctx, cfg, logger)
	defer closeDB()
	if cfg.SideEffectsMode == config.ModeKafka && cfg.PostgresDSN == "" {
		logger.Fatal("kafka side-effect mode needs POSTGRES_DSN shared with the sales worker")
	}

	// Redis
	counter, numbers, redisHealth, closeRedis := buildCounters(ctx, cfg, logger)
	defer closeRedis()

	// Deferred side effects
	recorder := sales.NewRecorder(st.catalog, st.details, counter, sales.WithLocation(cfg.Location()))
	var (
		deferred sales.Deferred
		pool     *tasks.Pool
		prod     *kafkax.Producer
	)
	switch cfg.SideEffectsMode {
	case config.ModeKafka:
		prod = kafkax.NewProducer(cfg.Brokers(), sales.TopicOrderPlaced, cfg.WorkerQueue, logger)
		prod.Start()
		deferred = sales.NewEventDispatcher(prod, cfg.ServiceName)
	default:
		pool = tasks.NewPool(cfg.WorkerCount, cfg.WorkerQueue, cfg.DeferredTimeout, logger)
		deferred = sales.NewPoolDispatcher(pool, recorder, logger)
	}
	logger.Info("deferred side effects configured", zap.String("mode", cfg.SideEffectsMode))

	svc := sales.NewService(st.uow, st.reader, numbers, deferred, sales.WithLogger(logger))
	useCases := observability.New(svc,
		observability.WithLogger(logger),
		observability.WithTracer(otel.Tracer("internal/sales")),
		observability.WithMeter(otel.Meter("internal/sales")),
	)

	router := httpx.NewRouter(logger, append(st.health, redisHealth...)...)
	(&httpx.SalesHandler{Sales: useCases, Logger: logger}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if pool != nil {
		if err := pool.Shutdown(ctx2); err != nil {
			logger.Warn("deferred tasks abandoned", zap.Error(err))
		}
	}
	if prod != nil {
		prod.Close()
		prod.WaitClosed()
	}
}

func buildStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (stores, func()) {
	if cfg.PostgresDSN == "" {
		logger.Warn("POSTGRES_DSN not set, falling back to in-memory sales store")
		return memoryStores(), func() {}
	}
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMax)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}
	repo := &sales.Repo{DB: db}
	logger.Info("sales store configured with postgres")
	return stores{
		uow:     &sales.TxRunner{DB: db},
		reader:  repo,
		catalog: repo,
		details: repo,
		health:  []httpx.HealthCheck{{Name: "postgres", Check: db.Ping}},
	}, db.Close
}

func memoryStores() stores {
	m := memory.NewStore()
	return stores{uow: m, reader: m, catalog: m, details: m}
}

func buildCounters(ctx context.Context, cfg config.Config, logger *zap.Logger) (sales.HotSaleCounter, sales.OrderNumberGenerator, []httpx.HealthCheck, func()) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, hot-sale counter and order numbers are process-local")
		return memory.NewHotSales(), memory.NewOrderNumbers(), nil, func() {}
	}
	rdb := redisx.New(cfg.RedisAddr)
	if err := redisx.Ping(ctx, rdb); err != nil {
		logger.Fatal("redis ping", zap.Error(err))
	}
	check := httpx.HealthCheck{Name: "redis", Check: func(ctx context.Context) error { return redisx.Ping(ctx, rdb) }}
	return &redisx.HotSaleCounter{RDB: rdb}, &redisx.OrderNumbers{RDB: rdb}, []httpx.HealthCheck{check}, func() { _ = rdb.Close() }
}
