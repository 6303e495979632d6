package domain_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

func makeProduct() domain.Product {
	return domain.Product{
		ID:         "product-1",
		Title:      "Trail shoes",
		Owner:      "manager@example.com",
		PriceMinor: 1000,
		Quantity:   10,
		MOQ:        2,
		Status:     domain.ProductStatusActive,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestProductValidate(t *testing.T) {
	product := makeProduct()
	if errs := product.Validate(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}

	product.Title = ""
	if len(product.Validate()) == 0 {
		t.Fatal("expected validation error for missing title")
	}

	product = makeProduct()
	product.MOQ = 0
	if len(product.Validate()) == 0 {
		t.Fatal("expected validation error for non-positive moq")
	}
}

func TestProductCheckOrderQuantity_BelowMOQ(t *testing.T) {
	product := makeProduct()

	err := product.CheckOrderQuantity(1)
	if !errors.Is(err, domain.ErrBelowMinOrderQty) {
		t.Fatalf("expected ErrBelowMinOrderQty, got %v", err)
	}
	// Сообщение должно содержать фактический moq.
	if !strings.Contains(err.Error(), "2") {
		t.Fatalf("expected moq value in message, got %q", err.Error())
	}
}

func TestProductCheckOrderQuantity_ExceedsStock(t *testing.T) {
	product := makeProduct()

	if err := product.CheckOrderQuantity(11); !errors.Is(err, domain.ErrExceedsStock) {
		t.Fatalf("expected ErrExceedsStock, got %v", err)
	}
}

func TestProductCheckOrderQuantity_Ok(t *testing.T) {
	product := makeProduct()

	for _, qty := range []int32{2, 3, 10} {
		if err := product.CheckOrderQuantity(qty); err != nil {
			t.Fatalf("expected qty %d to pass, got %v", qty, err)
		}
	}
}
