package domain

import (
	"context"
	"time"
)

// CatalogRepository описывает требования к хранилищу товаров. Ядро заказов
// использует только FindByID и DecrementStock, остальное обслуживает CRUD.
// Все операции принимают контекст вызывающего: дедлайн HTTP-запроса должен
// доходить до запроса в хранилище.
type CatalogRepository interface {
	// Create сохраняет новую карточку товара.
	Create(ctx context.Context, product Product) error
	// FindByID возвращает товар или ErrProductNotFound.
	FindByID(ctx context.Context, id string) (Product, error)
	// DecrementStock атомарно списывает qty единиц при условии
	// quantity >= qty; при нарушении условия возвращает ErrExceedsStock,
	// остаток не меняется.
	DecrementStock(ctx context.Context, id string, qty int32) error
	// ListByOwner возвращает страницу товаров владельца (пустой owner — все)
	// и общее число записей под фильтром.
	ListByOwner(ctx context.Context, owner string, page, limit int) ([]Product, int, error)
	// Delete удаляет карточку или возвращает ErrProductNotFound.
	Delete(ctx context.Context, id string) error
	// SetShowOnHome переключает флаг витрины.
	SetShowOnHome(ctx context.Context, id string, show bool) error
}

// OrderRepository описывает требования к хранилищу заказов. Все записи в это
// хранилище принадлежат менеджеру жизненного цикла.
type OrderRepository interface {
	// Create сохраняет новый заказ.
	Create(ctx context.Context, order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(ctx context.Context, id string) (Order, error)
	// ListPendingByManager возвращает pending-заказы менеджера,
	// отсортированные по createdAt по убыванию.
	ListPendingByManager(ctx context.Context, managerEmail string) ([]Order, error)
	// Approve переводит заказ pending → approved. Отсутствующий или
	// отклонённый заказ — ErrOrderNotFound, уже подтверждённый —
	// ErrOrderAlreadyApproved.
	Approve(ctx context.Context, id string, at time.Time) error
	// Reject переводит заказ pending → rejected. Совпадение только по
	// (id, pending); отсутствие совпадения — ErrOrderNotFound.
	Reject(ctx context.Context, id string, at time.Time) error
}

// PaymentRepository хранит подтверждения оплат с уникальностью по
// transaction_id.
type PaymentRepository interface {
	// Create сохраняет запись; повторный transaction_id — ErrPaymentDuplicate.
	Create(ctx context.Context, record PaymentRecord) error
	// GetByTransactionID возвращает запись или ErrPaymentDuplicate-совместимую
	// проверку существования для guard перед вставкой.
	GetByTransactionID(ctx context.Context, transactionID string) (PaymentRecord, error)
}

// IdentityRepository хранит аккаунты площадки.
type IdentityRepository interface {
	// Create сохраняет аккаунт; повторный email — ErrUserExists.
	Create(ctx context.Context, user User) error
	// GetByEmail возвращает аккаунт или ErrUserNotFound.
	GetByEmail(ctx context.Context, email string) (User, error)
	// List возвращает все аккаунты.
	List(ctx context.Context) ([]User, error)
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(ctx context.Context, event TimelineEvent) error
	List(ctx context.Context, orderID string) ([]TimelineEvent, error)
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(ctx context.Context, msg OutboxMessage) (OutboxMessage, error)
	PullPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	Stats(ctx context.Context) (OutboxStats, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
