package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// EventType определяет тип события во внешнем контракте.
type EventType string

const (
	// Order события
	EventTypeOrderCreated  EventType = "order.created"
	EventTypeOrderApproved EventType = "order.approved"
	EventTypeOrderRejected EventType = "order.rejected"

	// Payment события
	EventTypePaymentRecorded EventType = "payment.recorded"

	// Catalog события
	EventTypeProductCreated EventType = "product.created"
	EventTypeProductDeleted EventType = "product.deleted"
)

// Topics для Kafka
const (
	TopicOrderEvents     = "marketplace.order.events"
	TopicPaymentEvents   = "marketplace.payment.events"
	TopicCatalogEvents   = "marketplace.catalog.events"
	TopicDeadLetterQueue = "marketplace.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers для retry логики
const (
	HeaderRetryCount    = "x-retry-count"
	HeaderOriginalTopic = "x-original-topic"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
)

// EventEnvelope — формат, в котором события outbox лежат в topic-ах.
// Его пишет OutboxTopicPublisher и читают intake-воркер и dlq-reprocess.
type EventEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// OrderEvent представляет событие жизненного цикла заказа
type OrderEvent struct {
	EventType  EventType              `json:"event_type"`
	OrderID    string                 `json:"order_id"`
	ProductID  string                 `json:"product_id"`
	BuyerEmail string                 `json:"buyer_email"`
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// PaymentEvent представляет событие записи платежа
type PaymentEvent struct {
	EventType     EventType `json:"event_type"`
	TransactionID string    `json:"transaction_id"`
	ProductID     string    `json:"product_id"`
	BuyerEmail    string    `json:"buyer_email"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewOrderEvent создаёт новое событие заказа.
func NewOrderEvent(eventType EventType, orderID, productID, buyerEmail, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType:  eventType,
		OrderID:    orderID,
		ProductID:  productID,
		BuyerEmail: buyerEmail,
		Status:     status,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}
}

// NewPaymentEvent создаёт новое событие платежа.
func NewPaymentEvent(transactionID, productID, buyerEmail string, amount int64, currency string) *PaymentEvent {
	return &PaymentEvent{
		EventType:     EventTypePaymentRecorded,
		TransactionID: transactionID,
		ProductID:     productID,
		BuyerEmail:    buyerEmail,
		Amount:        amount,
		Currency:      currency,
		Timestamp:     time.Now(),
	}
}

// ParseEnvelope разбирает конверт outbox-события из тела сообщения.
func ParseEnvelope(message *sarama.ConsumerMessage) (*EventEnvelope, error) {
	var envelope EventEnvelope
	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}
	if envelope.EventType == "" {
		return nil, fmt.Errorf("event envelope has no event_type")
	}
	return &envelope, nil
}

// orderEventPayload — поля, которые сервис заказов кладёт в payload.
type orderEventPayload struct {
	OrderID       string `json:"order_id"`
	ProductID     string `json:"product_id"`
	BuyerEmail    string `json:"buyer_email"`
	OrderQuantity int32  `json:"order_quantity"`
	TS            string `json:"ts"`
}

// paymentEventPayload — поля, которые сервис оплат кладёт в payload.
type paymentEventPayload struct {
	TransactionID string `json:"transaction_id"`
	ProductID     string `json:"product_id"`
	BuyerEmail    string `json:"buyer_email"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	TS            string `json:"ts"`
}

// ParseOrderEvent собирает OrderEvent из конверта события заказа.
// Статус выводится из типа события: created — pending, approved/rejected —
// соответствующий терминальный статус.
func ParseOrderEvent(message *sarama.ConsumerMessage) (*OrderEvent, error) {
	envelope, err := ParseEnvelope(message)
	if err != nil {
		return nil, err
	}

	var payload orderEventPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order event payload: %w", err)
	}

	var status string
	switch envelope.EventType {
	case domain.EventOrderCreated:
		status = string(domain.OrderStatusPending)
	case domain.EventOrderApproved:
		status = string(domain.OrderStatusApproved)
	case domain.EventOrderRejected:
		status = string(domain.OrderStatusRejected)
	default:
		return nil, fmt.Errorf("unexpected order event type %q", envelope.EventType)
	}

	event := &OrderEvent{
		EventType:  EventType(envelope.EventType),
		OrderID:    firstNonEmptyString(payload.OrderID, envelope.AggregateID),
		ProductID:  payload.ProductID,
		BuyerEmail: payload.BuyerEmail,
		Status:     status,
		Timestamp:  eventTimestamp(payload.TS, envelope.PublishedAt),
	}
	if payload.OrderQuantity > 0 {
		event.Metadata = map[string]interface{}{"order_quantity": payload.OrderQuantity}
	}
	return event, nil
}

// ParsePaymentEvent собирает PaymentEvent из конверта события оплаты.
func ParsePaymentEvent(message *sarama.ConsumerMessage) (*PaymentEvent, error) {
	envelope, err := ParseEnvelope(message)
	if err != nil {
		return nil, err
	}
	if envelope.EventType != domain.EventPaymentRecorded {
		return nil, fmt.Errorf("unexpected payment event type %q", envelope.EventType)
	}

	var payload paymentEventPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment event payload: %w", err)
	}

	return &PaymentEvent{
		EventType:     EventType(envelope.EventType),
		TransactionID: firstNonEmptyString(payload.TransactionID, envelope.AggregateID),
		ProductID:     payload.ProductID,
		BuyerEmail:    payload.BuyerEmail,
		Amount:        payload.Amount,
		Currency:      payload.Currency,
		Timestamp:     eventTimestamp(payload.TS, envelope.PublishedAt),
	}, nil
}

func firstNonEmptyString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func eventTimestamp(ts string, fallback time.Time) time.Time {
	if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return parsed
	}
	return fallback
}
