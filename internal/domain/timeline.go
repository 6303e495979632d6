package domain

import "time"

// Типы событий жизненного цикла. Одни и те же значения пишутся в timeline
// заказа и в event_type transactional outbox, поэтому история заказа и
// публикуемый поток событий всегда согласованы между собой.
const (
	EventOrderCreated    = "order.created"
	EventOrderApproved   = "order.approved"
	EventOrderRejected   = "order.rejected"
	EventPaymentRecorded = "payment.recorded"
)

// Типы агрегатов outbox-событий. По ним publisher маршрутизирует события
// по топикам брокера.
const (
	AggregateOrder   = "order"
	AggregatePayment = "payment"
	AggregateProduct = "product"
)

// TimelineEvent описывает событие в жизненном цикле заказа.
type TimelineEvent struct {
	OrderID  string
	Type     string
	Reason   string
	Occurred time.Time
}
