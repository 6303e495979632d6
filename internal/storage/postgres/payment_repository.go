package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

type paymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository создаёт PostgreSQL-реализацию PaymentRepository.
func NewPaymentRepository(store *Store) domain.PaymentRepository {
	return &paymentRepository{db: store.DB()}
}

// Create вставляет платёжную запись. Уникальный индекс по transaction_id
// закрывает гонку двух одновременных подтверждений: проигравший получает
// ErrPaymentDuplicate, существующая запись не меняется.
func (r *paymentRepository) Create(ctx context.Context, record domain.PaymentRecord) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (
			id, product_id, buyer_email, amount, currency,
			transaction_id, payment_method, payment_status, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		record.ID, record.ProductID, record.BuyerEmail, record.Amount,
		record.Currency, record.TransactionID, record.PaymentMethod,
		record.PaymentStatus, record.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrPaymentDuplicate
		}
		return fmt.Errorf("insert payment: %w", err)
	}

	return nil
}

func (r *paymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (domain.PaymentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var record domain.PaymentRecord

	err := r.db.QueryRowContext(ctx, `
		SELECT id, product_id, buyer_email, amount, currency,
		       transaction_id, payment_method, payment_status, created_at
		FROM payments
		WHERE transaction_id = $1
	`, transactionID).Scan(
		&record.ID, &record.ProductID, &record.BuyerEmail, &record.Amount,
		&record.Currency, &record.TransactionID, &record.PaymentMethod,
		&record.PaymentStatus, &record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PaymentRecord{}, domain.ErrPaymentNotFound
		}
		return domain.PaymentRecord{}, fmt.Errorf("select payment: %w", err)
	}

	return record, nil
}

var _ domain.PaymentRepository = (*paymentRepository)(nil)
