package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/metrics"
)

// Manager описывает операции жизненного цикла заказа.
type Manager interface {
	Create(ctx context.Context, draft domain.Order) (domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	ListPendingForManager(ctx context.Context, managerEmail string) ([]domain.Order, error)
	Approve(ctx context.Context, id string) error
	Reject(ctx context.Context, id string) error
	Timeline(ctx context.Context, orderID string) ([]domain.TimelineEvent, error)
}

// manager реализует конвейер создания заказа: валидация → товар → MOQ →
// остаток → вставка → списание, и workflow pending → approved/rejected.
type manager struct {
	orders   domain.OrderRepository
	catalog  domain.CatalogRepository
	timeline domain.TimelineRepository
	outbox   domain.OutboxRepository
	logger   *log.Entry
	metrics  *metrics.OrderMetrics
	now      func() time.Time
}

// NewManager создаёт рабочий экземпляр менеджера жизненного цикла.
func NewManager(
	orders domain.OrderRepository,
	catalog domain.CatalogRepository,
	timeline domain.TimelineRepository,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) Manager {
	if logger == nil {
		logger = log.New().WithField("component", "order-lifecycle")
	}
	return &manager{
		orders:   orders,
		catalog:  catalog,
		timeline: timeline,
		outbox:   outbox,
		logger:   logger,
		metrics:  metrics.NewOrderMetrics(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NewManagerWithoutMetrics создаёт менеджер без метрик (для тестов).
func NewManagerWithoutMetrics(
	orders domain.OrderRepository,
	catalog domain.CatalogRepository,
	timeline domain.TimelineRepository,
	outbox domain.OutboxRepository,
	logger *log.Entry,
) Manager {
	if logger == nil {
		logger = log.New().WithField("component", "order-lifecycle")
	}
	return &manager{
		orders:   orders,
		catalog:  catalog,
		timeline: timeline,
		outbox:   outbox,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create проводит заявку через цепочку проверок и сохраняет заказ.
// Порядок проверок фиксирован: обязательные поля, существование товара,
// MOQ, остаток. Списание остатка выполняется после вставки заказа.
func (m *manager) Create(ctx context.Context, draft domain.Order) (domain.Order, error) {
	start := m.now()
	defer func() {
		if m.metrics != nil {
			m.metrics.RecordCreateDuration(time.Since(start))
		}
	}()

	if errs := draft.Validate(); len(errs) > 0 {
		m.recordFailure("missing_fields")
		return domain.Order{}, errs[0]
	}

	product, err := m.catalog.FindByID(ctx, draft.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			m.recordFailure("product_not_found")
			return domain.Order{}, domain.ErrProductNotFound
		}
		return domain.Order{}, fmt.Errorf("load product: %w", err)
	}

	if err := product.CheckOrderQuantity(draft.OrderQuantity); err != nil {
		switch {
		case errors.Is(err, domain.ErrBelowMinOrderQty):
			m.recordFailure("below_moq")
		case errors.Is(err, domain.ErrExceedsStock):
			m.recordFailure("exceeds_stock")
		}
		return domain.Order{}, err
	}

	order := draft
	order.ID = uuid.NewString()
	order.Status = domain.OrderStatusPending
	order.PaymentStatus = domain.DerivePaymentStatus(order.PaymentOption)
	order.OrderTo = product.Owner
	order.CreatedAt = start
	order.ApprovedAt = nil
	order.RejectedAt = nil

	if err := m.orders.Create(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("persist order: %w", err)
	}

	// Списание идёт после вставки. Если оно не прошло, заказ уже сохранён:
	// это фатальная рассогласованность, компенсация не выполняется.
	if err := m.catalog.DecrementStock(ctx, order.ProductID, order.OrderQuantity); err != nil {
		m.logger.WithError(err).WithFields(log.Fields{
			"order_id":   order.ID,
			"product_id": order.ProductID,
			"quantity":   order.OrderQuantity,
		}).Error("stock decrement failed after order insert")
		m.recordFailure("stock_inconsistent")
		return domain.Order{}, fmt.Errorf("%w: %v", domain.ErrStockInconsistent, err)
	}

	if m.metrics != nil {
		m.metrics.RecordOrderCreated()
	}
	m.emitEvent(ctx, order, domain.EventOrderCreated, map[string]interface{}{
		"product_id":     order.ProductID,
		"buyer_email":    order.BuyerEmail,
		"order_quantity": order.OrderQuantity,
		"ts":             order.CreatedAt.Format(time.RFC3339Nano),
	})

	m.logger.WithFields(log.Fields{
		"order_id":   order.ID,
		"product_id": order.ProductID,
		"order_to":   order.OrderTo,
	}).Info("order created")

	return order, nil
}

func (m *manager) Get(ctx context.Context, id string) (domain.Order, error) {
	return m.orders.Get(ctx, id)
}

// ListPendingForManager возвращает очередь заказов, ожидающих решения.
func (m *manager) ListPendingForManager(ctx context.Context, managerEmail string) ([]domain.Order, error) {
	if managerEmail == "" {
		return nil, domain.ErrMissingRequiredFields
	}
	return m.orders.ListPendingByManager(ctx, managerEmail)
}

// Approve переводит заказ pending → approved. Повторное подтверждение
// возвращает ErrOrderAlreadyApproved, отклонённый или отсутствующий заказ —
// ErrOrderNotFound.
func (m *manager) Approve(ctx context.Context, id string) error {
	at := m.now()
	if err := m.orders.Approve(ctx, id, at); err != nil {
		return err
	}

	if m.metrics != nil {
		m.metrics.RecordOrderApproved()
	}
	m.emitEvent(ctx, domain.Order{ID: id}, domain.EventOrderApproved, map[string]interface{}{
		"ts": at.Format(time.RFC3339Nano),
	})

	m.logger.WithField("order_id", id).Info("order approved")
	return nil
}

// Reject переводит заказ pending → rejected. Любое несовпадение по
// (id, pending) — ErrOrderNotFound.
func (m *manager) Reject(ctx context.Context, id string) error {
	at := m.now()
	if err := m.orders.Reject(ctx, id, at); err != nil {
		return err
	}

	if m.metrics != nil {
		m.metrics.RecordOrderRejected()
	}
	m.emitEvent(ctx, domain.Order{ID: id}, domain.EventOrderRejected, map[string]interface{}{
		"ts": at.Format(time.RFC3339Nano),
	})

	m.logger.WithField("order_id", id).Info("order rejected")
	return nil
}

// Timeline возвращает события жизненного цикла заказа.
func (m *manager) Timeline(ctx context.Context, orderID string) ([]domain.TimelineEvent, error) {
	if m.timeline == nil {
		return nil, nil
	}
	return m.timeline.List(ctx, orderID)
}

func (m *manager) recordFailure(reason string) {
	if m.metrics != nil {
		m.metrics.RecordOrderFailed(reason)
	}
}

func (m *manager) emitEvent(ctx context.Context, order domain.Order, eventType string, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = order.ID

	if m.outbox != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			m.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Error("marshal event failed")
			return
		}

		msg := domain.OutboxMessage{
			AggregateType: domain.AggregateOrder,
			AggregateID:   order.ID,
			EventType:     eventType,
			Payload:       data,
		}
		if _, err := m.outbox.Enqueue(ctx, msg); err != nil {
			m.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Error("enqueue event failed")
		} else if m.metrics != nil {
			m.metrics.RecordOutboxEvent()
		}
	}

	if m.timeline != nil {
		occurred := m.now()
		if ts, ok := payload["ts"].(string); ok {
			if parsed, parseErr := time.Parse(time.RFC3339Nano, ts); parseErr == nil {
				occurred = parsed
			}
		}
		event := domain.TimelineEvent{
			OrderID:  order.ID,
			Type:     eventType,
			Occurred: occurred,
		}
		if err := m.timeline.Append(ctx, event); err != nil {
			m.logger.WithError(err).WithFields(log.Fields{
				"order_id": order.ID,
				"event":    eventType,
			}).Warn("append timeline event failed")
		} else if m.metrics != nil {
			m.metrics.RecordTimelineEvent()
		}
	}
}

var _ Manager = (*manager)(nil)
