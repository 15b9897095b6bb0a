package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	ModeInline = "inline"
	ModeKafka  = "kafka"
)

type Config struct {
	HTTPAddr     string `envconfig:"HTTP_ADDR" default:":8081"`
	PostgresDSN  string `envconfig:"POSTGRES_DSN"`
	PostgresMax  int32  `envconfig:"POSTGRES_MAX_CONNS" default:"16"`
	AutoMigrate  bool   `envconfig:"AUTO_MIGRATE" default:"false"`
	RedisAddr    string `envconfig:"REDIS_ADDR"`
	KafkaBrokers string `envconfig:"KAFKA_BROKERS" default:"kafka:9092"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"sales-api"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`

	SideEffectsMode string        `envconfig:"SIDE_EFFECTS_MODE" default:"inline"`
	WorkerCount     int           `envconfig:"WORKER_COUNT" default:"8"`
	WorkerQueue     int           `envconfig:"WORKER_QUEUE" default:"1024"`
	DeferredTimeout time.Duration `envconfig:"DEFERRED_TIMEOUT" default:"10s"`
	HotSaleTZ       string        `envconfig:"HOT_SALE_TZ" default:"Local"`

	WorkerGroup        string        `envconfig:"SALES_WORKER_GROUP" default:"sales-worker"`
	WorkerConcurrency  int           `envconfig:"SALES_WORKER_CONCURRENCY" default:"8"`
	WorkerRetries      int           `envconfig:"SALES_WORKER_RETRIES" default:"5"`
	WorkerRetryBackoff time.Duration `envconfig:"SALES_WORKER_RETRY_BACKOFF" default:"200ms"`
}

// Load reads the environment, applies defaults and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	cfg.SideEffectsMode = strings.ToLower(strings.TrimSpace(cfg.SideEffectsMode))
	switch cfg.SideEffectsMode {
	case ModeInline, ModeKafka:
	default:
		return Config{}, fmt.Errorf("SIDE_EFFECTS_MODE must be %q or %q, got %q", ModeInline, ModeKafka, cfg.SideEffectsMode)
	}
	if cfg.WorkerCount <= 0 || cfg.WorkerQueue <= 0 || cfg.WorkerConcurrency <= 0 {
		return Config{}, fmt.Errorf("WORKER_COUNT, WORKER_QUEUE and SALES_WORKER_CONCURRENCY must be positive")
	}
	if cfg.WorkerRetries <= 0 {
		return Config{}, fmt.Errorf("SALES_WORKER_RETRIES must be positive")
	}
	if cfg.DeferredTimeout <= 0 {
		return Config{}, fmt.Errorf("DEFERRED_TIMEOUT must be positive")
	}
	if _, err := time.LoadLocation(cfg.HotSaleTZ); err != nil {
		return Config{}, fmt.Errorf("HOT_SALE_TZ: %w", err)
	}
	return cfg, nil
}

// Location is the zone whose calendar day buckets the hot-sale counter.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.HotSaleTZ)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c Config) Brokers() []string { return splitCSV(c.KafkaBrokers) }

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
