// Package cache добавляет read-through Redis-кэш поверх каталога товаров.
// Кэш ускоряет только FindByID: это самый горячий путь, он выполняется на
// каждое создание заказа. Любая ошибка Redis деградирует к прямому чтению
// из хранилища, сам кэш никогда не является источником истины.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const (
	productKeyFormat = "product:%s"
	productTTL       = 5 * time.Minute
	redisOpTimeout   = 2 * time.Second
)

type productCache struct {
	inner  domain.CatalogRepository
	client *redis.Client
	logger *log.Entry
}

// NewProductCache оборачивает репозиторий каталога read-through кэшем.
func NewProductCache(inner domain.CatalogRepository, client *redis.Client) domain.CatalogRepository {
	return &productCache{
		inner:  inner,
		client: client,
		logger: log.WithField("component", "product_cache"),
	}
}

// NewRedisClient создаёт клиент Redis и проверяет доступность сервера.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

func (c *productCache) Create(ctx context.Context, product domain.Product) error {
	return c.inner.Create(ctx, product)
}

func (c *productCache) FindByID(ctx context.Context, id string) (domain.Product, error) {
	redisCtx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	key := fmt.Sprintf(productKeyFormat, id)

	raw, err := c.client.Get(redisCtx, key).Bytes()
	if err == nil {
		var product domain.Product
		if err := json.Unmarshal(raw, &product); err == nil {
			return product, nil
		}
		// Битую запись убираем, дальше идём в хранилище.
		_ = c.client.Del(redisCtx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WithError(err).Debug("redis get failed, falling back to store")
	}

	product, err := c.inner.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	if raw, err := json.Marshal(product); err == nil {
		if err := c.client.Set(redisCtx, key, raw, productTTL).Err(); err != nil {
			c.logger.WithError(err).Debug("redis set failed")
		}
	}

	return product, nil
}

func (c *productCache) DecrementStock(ctx context.Context, id string, qty int32) error {
	if err := c.inner.DecrementStock(ctx, id, qty); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *productCache) ListByOwner(ctx context.Context, owner string, page, limit int) ([]domain.Product, int, error) {
	return c.inner.ListByOwner(ctx, owner, page, limit)
}

func (c *productCache) Delete(ctx context.Context, id string) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *productCache) SetShowOnHome(ctx context.Context, id string, show bool) error {
	if err := c.inner.SetShowOnHome(ctx, id, show); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *productCache) invalidate(ctx context.Context, id string) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()

	if err := c.client.Del(ctx, fmt.Sprintf(productKeyFormat, id)).Err(); err != nil {
		c.logger.WithError(err).Warn("failed to invalidate product cache entry")
	}
}

var _ domain.CatalogRepository = (*productCache)(nil)
