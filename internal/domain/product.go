package domain

import (
	"fmt"
	"time"
)

// ProductStatus описывает состояние карточки товара в каталоге.
type ProductStatus string

const (
	// ProductStatusActive — товар опубликован и доступен для заказа.
	ProductStatusActive ProductStatus = "active"
	// ProductStatusInactive — товар снят с публикации владельцем.
	ProductStatusInactive ProductStatus = "inactive"
)

// Product — карточка товара в каталоге. Ядро заказов читает её и списывает
// остаток; всё остальное (создание, пагинация, showOnHome) — обычный CRUD.
type Product struct {
	ID         string
	Title      string
	Owner      string // email владельца; он же подтверждает заказы по товару
	PriceMinor int64
	Quantity   int32 // доступный остаток, никогда не уходит ниже нуля
	MOQ        int32 // минимальное количество в одном заказе
	Status     ProductStatus
	ShowOnHome bool
	CreatedAt  time.Time
}

// Validate проверяет базовые инварианты карточки товара.
func (p *Product) Validate() []error {
	var errs []error

	if p.Title == "" || p.Owner == "" {
		errs = append(errs, ErrMissingRequiredFields)
	}
	if p.Quantity < 0 {
		errs = append(errs, fmt.Errorf("%w: quantity must be non-negative", ErrMissingRequiredFields))
	}
	if p.MOQ <= 0 {
		errs = append(errs, fmt.Errorf("%w: moq must be positive", ErrMissingRequiredFields))
	}

	return errs
}

// CheckOrderQuantity проверяет количество заказа против moq и остатка по
// снимку товара на момент чтения.
func (p *Product) CheckOrderQuantity(qty int32) error {
	if qty < p.MOQ {
		return fmt.Errorf("%w: minimum order quantity is %d", ErrBelowMinOrderQty, p.MOQ)
	}
	if qty > p.Quantity {
		return ErrExceedsStock
	}
	return nil
}
