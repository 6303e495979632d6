package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию CatalogRepository.
func NewProductRepository(store *Store) domain.CatalogRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Create(ctx context.Context, product domain.Product) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, title, owner_email, price_minor, quantity, moq,
			status, show_on_home, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		product.ID, product.Title, product.Owner, product.PriceMinor,
		product.Quantity, product.MOQ, string(product.Status),
		product.ShowOnHome, product.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var product domain.Product
	var status string

	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, owner_email, price_minor, quantity, moq,
		       status, show_on_home, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(
		&product.ID, &product.Title, &product.Owner, &product.PriceMinor,
		&product.Quantity, &product.MOQ, &status,
		&product.ShowOnHome, &product.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	product.Status = domain.ProductStatus(status)

	return product, nil
}

// DecrementStock списывает остаток одним условным UPDATE: проверка
// quantity >= qty и само списание выполняются атомарно, поэтому
// конкурирующие заказы не уводят остаток ниже нуля.
func (r *productRepository) DecrementStock(ctx context.Context, id string, qty int32) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET quantity = quantity - $1
		WHERE id = $2
		  AND quantity >= $1
	`, qty, id)
	if err != nil {
		return fmt.Errorf("decrement product stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.productExists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrProductNotFound
		}
		return domain.ErrExceedsStock
	}

	return nil
}

func (r *productRepository) ListByOwner(ctx context.Context, owner string, page, limit int) ([]domain.Product, int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	offset := (page - 1) * limit

	var total int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM products
		WHERE ($1 = '' OR owner_email = $1)
	`, owner).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, owner_email, price_minor, quantity, moq,
		       status, show_on_home, created_at
		FROM products
		WHERE ($1 = '' OR owner_email = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, owner, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, limit)
	for rows.Next() {
		var product domain.Product
		var status string
		if err := rows.Scan(
			&product.ID, &product.Title, &product.Owner, &product.PriceMinor,
			&product.Quantity, &product.MOQ, &status,
			&product.ShowOnHome, &product.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		product.Status = domain.ProductStatus(status)
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, total, nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

func (r *productRepository) SetShowOnHome(ctx context.Context, id string, show bool) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET show_on_home = $2
		WHERE id = $1
	`, id, show)
	if err != nil {
		return fmt.Errorf("update show_on_home: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

func (r *productRepository) productExists(ctx context.Context, id string) (bool, error) {
	var found string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM products WHERE id = $1`, id).Scan(&found)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check product exists: %w", err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.CatalogRepository = (*productRepository)(nil)
