package payment

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

// Recorder записывает подтверждения оплат с идемпотентностью по
// transaction_id.
type Recorder interface {
	Record(ctx context.Context, record domain.PaymentRecord) (domain.PaymentRecord, error)
	GetByTransactionID(ctx context.Context, transactionID string) (domain.PaymentRecord, error)
}

type recorder struct {
	payments domain.PaymentRepository
	outbox   domain.OutboxRepository
	logger   *log.Entry
	metrics  *metrics.OrderMetrics
	now      func() time.Time
}

// NewRecorder создаёт сервис записи платежей.
func NewRecorder(payments domain.PaymentRepository, outbox domain.OutboxRepository, logger *log.Entry) Recorder {
	if logger == nil {
		logger = log.New().WithField("component", "payment-recorder")
	}
	return &recorder{
		payments: payments,
		outbox:   outbox,
		logger:   logger,
		metrics:  metrics.NewOrderMetrics(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NewRecorderWithoutMetrics создаёт сервис без метрик (для тестов).
func NewRecorderWithoutMetrics(payments domain.PaymentRepository, outbox domain.OutboxRepository, logger *log.Entry) Recorder {
	if logger == nil {
		logger = log.New().WithField("component", "payment-recorder")
	}
	return &recorder{
		payments: payments,
		outbox:   outbox,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Record сохраняет подтверждение оплаты. Повторный transaction_id даёт
// ErrPaymentDuplicate, исходная запись остаётся нетронутой. Пустые
// currency и payment_method заполняются значениями по умолчанию.
func (r *recorder) Record(ctx context.Context, record domain.PaymentRecord) (domain.PaymentRecord, error) {
	if errs := record.Validate(); len(errs) > 0 {
		return domain.PaymentRecord{}, errs[0]
	}

	// Быстрая проверка до вставки. Гонка двух одновременных подтверждений
	// разрешается уникальным ограничением в хранилище.
	if _, err := r.payments.GetByTransactionID(ctx, record.TransactionID); err == nil {
		r.markDuplicate(record.TransactionID)
		return domain.PaymentRecord{}, domain.ErrPaymentDuplicate
	} else if !errors.Is(err, domain.ErrPaymentNotFound) {
		return domain.PaymentRecord{}, fmt.Errorf("check transaction: %w", err)
	}

	record.ID = uuid.NewString()
	if record.Currency == "" {
		record.Currency = domain.DefaultPaymentCurrency
	}
	if record.PaymentMethod == "" {
		record.PaymentMethod = domain.DefaultPaymentMethod
	}
	record.PaymentStatus = domain.PaymentRecordSucceeded
	record.CreatedAt = r.now()

	if err := r.payments.Create(ctx, record); err != nil {
		if errors.Is(err, domain.ErrPaymentDuplicate) {
			r.markDuplicate(record.TransactionID)
			return domain.PaymentRecord{}, domain.ErrPaymentDuplicate
		}
		return domain.PaymentRecord{}, fmt.Errorf("persist payment: %w", err)
	}

	if r.metrics != nil {
		r.metrics.RecordPaymentRecorded()
	}
	r.emitEvent(ctx, record)

	r.logger.WithFields(log.Fields{
		"transaction_id": record.TransactionID,
		"product_id":     record.ProductID,
		"amount":         record.Amount,
		"currency":       record.Currency,
	}).Info("payment recorded")

	return record, nil
}

func (r *recorder) GetByTransactionID(ctx context.Context, transactionID string) (domain.PaymentRecord, error) {
	if transactionID == "" {
		return domain.PaymentRecord{}, domain.ErrMissingPaymentFields
	}
	return r.payments.GetByTransactionID(ctx, transactionID)
}

func (r *recorder) markDuplicate(transactionID string) {
	if r.metrics != nil {
		r.metrics.RecordPaymentDuplicate()
	}
	r.logger.WithField("transaction_id", transactionID).Warn("duplicate payment confirmation rejected")
}

func (r *recorder) emitEvent(ctx context.Context, record domain.PaymentRecord) {
	if r.outbox == nil {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"transaction_id": record.TransactionID,
		"product_id":     record.ProductID,
		"buyer_email":    record.BuyerEmail,
		"amount":         record.Amount,
		"currency":       record.Currency,
		"ts":             record.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		r.logger.WithError(err).Error("marshal payment event failed")
		return
	}

	msg := domain.OutboxMessage{
		AggregateType: domain.AggregatePayment,
		AggregateID:   record.TransactionID,
		EventType:     domain.EventPaymentRecorded,
		Payload:       payload,
	}
	if _, err := r.outbox.Enqueue(ctx, msg); err != nil {
		r.logger.WithError(err).WithField("transaction_id", record.TransactionID).Error("enqueue payment event failed")
	} else if r.metrics != nil {
		r.metrics.RecordOutboxEvent()
	}
}

var _ Recorder = (*recorder)(nil)
