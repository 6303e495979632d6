package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/cache"
	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/postgres"
)

// Dependencies содержит хранилища и внешние клиенты приложения.
type Dependencies struct {
	Orders   domain.OrderRepository
	Catalog  domain.CatalogRepository
	Payments domain.PaymentRepository
	Users    domain.IdentityRepository
	Timeline domain.TimelineRepository
	Outbox   domain.OutboxRepository

	Store  *postgres.Store
	Redis  *redis.Client
	Logger *log.Entry
}

// NewDependencies собирает хранилища по выбранному драйверу. Redis, если
// настроен, оборачивает каталог read-through кэшем; его недоступность на
// старте — ошибка конфигурации, а не повод тихо работать без кэша.
func NewDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &Dependencies{Logger: logger}

	switch cfg.StorageDriver {
	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
		deps.Store = store
		deps.Orders = postgres.NewOrderRepository(store)
		deps.Catalog = postgres.NewProductRepository(store)
		deps.Payments = postgres.NewPaymentRepository(store)
		deps.Users = postgres.NewUserRepository(store)
		deps.Timeline = postgres.NewTimelineRepository(store)
		deps.Outbox = postgres.NewOutboxRepository(store)
		logger.Info("postgres storage initialized")
	case StorageDriverMemory:
		deps.Orders = memory.NewOrderRepository()
		deps.Catalog = memory.NewProductRepository()
		deps.Payments = memory.NewPaymentRepository()
		deps.Users = memory.NewUserRepository()
		deps.Timeline = memory.NewTimelineRepository()
		deps.Outbox = memory.NewOutboxRepository()
		logger.Info("in-memory storage initialized")
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		deps.Redis = client
		deps.Catalog = cache.NewProductCache(deps.Catalog, client)
		logger.WithField("addr", cfg.RedisAddr).Info("product cache enabled")
	}

	return deps, nil
}

// Close освобождает соединения с внешними системами.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close redis client")
		}
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			d.Logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
