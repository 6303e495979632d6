package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// StorageDriver выбирает реализацию хранилища.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr string
	OpsAddr  string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	RedisAddr     string
	KafkaBrokers  []string
	IntakeGroupID string

	GatewayBaseURL   string
	GatewaySecretKey string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
}

// DefaultConfig возвращает безопасные значения для локального запуска:
// in-memory хранилище, без Kafka, без Redis, mock-процессор платежей.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":8080",
		OpsAddr:             ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		IntakeGroupID:       "marketplace-intake",
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    50 * time.Millisecond,
	}
}

// ReadConfig собирает конфигурацию из окружения поверх значений по умолчанию.
func ReadConfig() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("MKT_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("MKT_OPS_ADDR"); v != "" {
		cfg.OpsAddr = v
	}
	if v := os.Getenv("MKT_STORAGE_DRIVER"); v != "" {
		driver := StorageDriver(strings.ToLower(strings.TrimSpace(v)))
		if driver != StorageDriverMemory && driver != StorageDriverPostgres {
			return Config{}, fmt.Errorf("unknown storage driver %q", v)
		}
		cfg.StorageDriver = driver
	}
	if v := os.Getenv("MKT_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("MKT_POSTGRES_AUTO_MIGRATE"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MKT_POSTGRES_AUTO_MIGRATE: %w", err)
		}
		cfg.PostgresAutoMigrate = enabled
	}
	if v := os.Getenv("MKT_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("MKT_KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = splitCSV(v)
	}
	if v, ok := os.LookupEnv("MKT_KAFKA_INTAKE_GROUP"); ok {
		// Пустое значение отключает intake-воркер.
		cfg.IntakeGroupID = strings.TrimSpace(v)
	}
	if v := os.Getenv("MKT_GATEWAY_BASE_URL"); v != "" {
		cfg.GatewayBaseURL = v
	}
	if v := os.Getenv("MKT_GATEWAY_SECRET_KEY"); v != "" {
		cfg.GatewaySecretKey = v
	}
	if v := os.Getenv("MKT_OUTBOX_POLL_INTERVAL"); v != "" {
		interval, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MKT_OUTBOX_POLL_INTERVAL: %w", err)
		}
		cfg.OutboxPollInterval = interval
	}
	if v := os.Getenv("MKT_OUTBOX_BATCH_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MKT_OUTBOX_BATCH_SIZE: %w", err)
		}
		cfg.OutboxBatchSize = size
	}
	if v := os.Getenv("MKT_OUTBOX_MAX_ATTEMPTS"); v != "" {
		attempts, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MKT_OUTBOX_MAX_ATTEMPTS: %w", err)
		}
		cfg.OutboxMaxAttempts = attempts
	}
	if v := os.Getenv("MKT_OUTBOX_RETRY_DELAY"); v != "" {
		delay, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid MKT_OUTBOX_RETRY_DELAY: %w", err)
		}
		cfg.OutboxRetryDelay = delay
	}

	return cfg, cfg.Validate()
}

// Validate проверяет согласованность конфигурации.
func (c Config) Validate() error {
	if c.StorageDriver == StorageDriverPostgres && c.PostgresDSN == "" {
		return fmt.Errorf("postgres driver requires MKT_POSTGRES_DSN")
	}
	if c.OutboxBatchSize <= 0 {
		return fmt.Errorf("outbox batch size must be positive")
	}
	if c.OutboxMaxAttempts <= 0 {
		return fmt.Errorf("outbox max attempts must be positive")
	}
	return nil
}

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
