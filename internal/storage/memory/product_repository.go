package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// productRepositoryInMemory — простая in-memory реализация CatalogRepository.
type productRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Product
}

// NewProductRepository возвращает in-memory каталог для локальной разработки и тестов.
func NewProductRepository() domain.CatalogRepository {
	return &productRepositoryInMemory{
		items: make(map[string]domain.Product),
	}
}

// Create сохраняет новую карточку товара.
func (r *productRepositoryInMemory) Create(_ context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[product.ID] = product
	return nil
}

// FindByID возвращает товар или ErrProductNotFound, если его нет.
func (r *productRepositoryInMemory) FindByID(_ context.Context, id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.items[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// DecrementStock списывает qty при условии quantity >= qty. Проверка и
// списание выполняются под одной блокировкой — аналог условного UPDATE.
func (r *productRepositoryInMemory) DecrementStock(_ context.Context, id string, qty int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if product.Quantity < qty {
		return domain.ErrExceedsStock
	}
	product.Quantity -= qty
	r.items[id] = product
	return nil
}

// ListByOwner возвращает страницу товаров владельца и общее число записей.
func (r *productRepositoryInMemory) ListByOwner(_ context.Context, owner string, page, limit int) ([]domain.Product, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	filtered := make([]domain.Product, 0, len(r.items))
	for _, product := range r.items {
		if owner != "" && product.Owner != owner {
			continue
		}
		filtered = append(filtered, product)
	}

	sort.Slice(filtered, func(i, j int) bool {
		if !filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
			return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
		}
		return filtered[i].ID > filtered[j].ID
	})

	total := len(filtered)
	start := (page - 1) * limit
	if start >= total {
		return []domain.Product{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}

	result := make([]domain.Product, end-start)
	copy(result, filtered[start:end])
	return result, total, nil
}

// Delete удаляет карточку товара.
func (r *productRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.items, id)
	return nil
}

// SetShowOnHome переключает флаг витрины.
func (r *productRepositoryInMemory) SetShowOnHome(_ context.Context, id string, show bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.items[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	product.ShowOnHome = show
	r.items[id] = product
	return nil
}

var _ domain.CatalogRepository = (*productRepositoryInMemory)(nil)
