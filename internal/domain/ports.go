package domain

import "context"

// IntentRequest — запрос к внешнему процессору в его минимальных денежных
// единицах.
type IntentRequest struct {
	AmountMinor int64
	Currency    string
	ProductID   string // уходит процессору как metadata
}

// PaymentProcessor описывает внешний платёжный процессор, выдающий
// client secret для клиентского подтверждения оплаты. Одна попытка,
// без retry — сбой сразу отдаётся наверх.
type PaymentProcessor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (clientSecret string, err error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}
