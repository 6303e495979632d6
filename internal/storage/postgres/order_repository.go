package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (
			id, product_id, buyer_email, order_quantity, total_price,
			payment_option, payment_status, transaction_id, status,
			order_to, created_at, approved_at, rejected_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		order.ID, order.ProductID, order.BuyerEmail, order.OrderQuantity,
		order.TotalPrice, string(order.PaymentOption), string(order.PaymentStatus),
		order.TransactionID, string(order.Status), order.OrderTo,
		order.CreatedAt, order.ApprovedAt, order.RejectedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

func (r *orderRepository) Get(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT id, product_id, buyer_email, order_quantity, total_price,
		       payment_option, payment_status, transaction_id, status,
		       order_to, created_at, approved_at, rejected_at
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	return order, nil
}

func (r *orderRepository) ListPendingByManager(ctx context.Context, managerEmail string) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, buyer_email, order_quantity, total_price,
		       payment_option, payment_status, transaction_id, status,
		       order_to, created_at, approved_at, rejected_at
		FROM orders
		WHERE order_to = $1
		  AND status = $2
		ORDER BY created_at DESC, id DESC
	`, managerEmail, string(domain.OrderStatusPending))
	if err != nil {
		return nil, fmt.Errorf("list pending orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

// Approve переводит pending-заказ в approved. Повторное подтверждение
// различается отдельно: заказ в approved даёт ErrOrderAlreadyApproved,
// отсутствующий или отклонённый — ErrOrderNotFound.
func (r *orderRepository) Approve(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
		    approved_at = $3
		WHERE id = $1
		  AND status = $4
	`, id, string(domain.OrderStatusApproved), at, string(domain.OrderStatusPending))
	if err != nil {
		return fmt.Errorf("approve order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		status, err := r.orderStatus(ctx, id)
		if err != nil {
			return err
		}
		if status == domain.OrderStatusApproved {
			return domain.ErrOrderAlreadyApproved
		}
		return domain.ErrOrderNotFound
	}

	return nil
}

func (r *orderRepository) Reject(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $2,
		    rejected_at = $3
		WHERE id = $1
		  AND status = $4
	`, id, string(domain.OrderStatusRejected), at, string(domain.OrderStatusPending))
	if err != nil {
		return fmt.Errorf("reject order: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

func (r *orderRepository) orderStatus(ctx context.Context, id string) (domain.OrderStatus, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrOrderNotFound
		}
		return "", fmt.Errorf("select order status: %w", err)
	}
	return domain.OrderStatus(status), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		order         domain.Order
		paymentOption string
		paymentStatus string
		status        string
		approvedAt    sql.NullTime
		rejectedAt    sql.NullTime
	)

	if err := row.Scan(
		&order.ID, &order.ProductID, &order.BuyerEmail, &order.OrderQuantity,
		&order.TotalPrice, &paymentOption, &paymentStatus, &order.TransactionID,
		&status, &order.OrderTo, &order.CreatedAt, &approvedAt, &rejectedAt,
	); err != nil {
		return domain.Order{}, err
	}

	order.PaymentOption = domain.PaymentOption(paymentOption)
	order.PaymentStatus = domain.PaymentStatus(paymentStatus)
	order.Status = domain.OrderStatus(status)
	if approvedAt.Valid {
		t := approvedAt.Time.UTC()
		order.ApprovedAt = &t
	}
	if rejectedAt.Valid {
		t := rejectedAt.Time.UTC()
		order.RejectedAt = &t
	}

	return order, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
