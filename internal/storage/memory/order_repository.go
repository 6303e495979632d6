package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
// Контекст принимается ради совместимости с портом: операции по карте
// не блокируются, поэтому он игнорируется.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items: make(map[string]domain.Order),
	}
}

// Create сохраняет новый заказ.
func (r *orderRepositoryInMemory) Create(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[order.ID] = order
	return nil
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(_ context.Context, id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// ListPendingByManager возвращает pending-заказы менеджера, новые первыми.
func (r *orderRepositoryInMemory) ListPendingByManager(_ context.Context, managerEmail string) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if order.OrderTo != managerEmail || order.Status != domain.OrderStatusPending {
			continue
		}
		result = append(result, order)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	return result, nil
}

// Approve переводит заказ pending → approved. Совпадение по id: уже
// подтверждённый заказ даёт конфликт, отклонённый остаётся нетронутым и
// отвечает как отсутствующий — из терминального статуса выхода нет.
func (r *orderRepositoryInMemory) Approve(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return domain.ErrOrderNotFound
	}

	switch order.Status {
	case domain.OrderStatusApproved:
		return domain.ErrOrderAlreadyApproved
	case domain.OrderStatusRejected:
		return domain.ErrOrderNotFound
	}

	order.Status = domain.OrderStatusApproved
	order.ApprovedAt = &at
	r.items[id] = order
	return nil
}

// Reject переводит заказ pending → rejected. Совпадение строго по
// (id, pending): всё остальное — ErrOrderNotFound.
func (r *orderRepositoryInMemory) Reject(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok || order.Status != domain.OrderStatusPending {
		return domain.ErrOrderNotFound
	}

	order.Status = domain.OrderStatusRejected
	order.RejectedAt = &at
	r.items[id] = order
	return nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
