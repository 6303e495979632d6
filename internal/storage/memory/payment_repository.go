package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// paymentRepositoryInMemory хранит платёжные записи с уникальностью по
// transaction_id.
type paymentRepositoryInMemory struct {
	mu      sync.RWMutex
	byTxnID map[string]domain.PaymentRecord
}

// NewPaymentRepository возвращает in-memory реализацию PaymentRepository.
func NewPaymentRepository() domain.PaymentRepository {
	return &paymentRepositoryInMemory{
		byTxnID: make(map[string]domain.PaymentRecord),
	}
}

// Create сохраняет запись; проверка существования и вставка выполняются под
// одной блокировкой, дубликат не перезаписывается.
func (r *paymentRepositoryInMemory) Create(_ context.Context, record domain.PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byTxnID[record.TransactionID]; exists {
		return domain.ErrPaymentDuplicate
	}
	r.byTxnID[record.TransactionID] = record
	return nil
}

// GetByTransactionID возвращает запись по ключу идемпотентности.
func (r *paymentRepositoryInMemory) GetByTransactionID(_ context.Context, transactionID string) (domain.PaymentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.byTxnID[transactionID]
	if !ok {
		return domain.PaymentRecord{}, domain.ErrPaymentNotFound
	}
	return record, nil
}

var _ domain.PaymentRepository = (*paymentRepositoryInMemory)(nil)
