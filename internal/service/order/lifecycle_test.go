package order

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

func newTestManager(t *testing.T) (Manager, domain.CatalogRepository, domain.OrderRepository, domain.TimelineRepository) {
	t.Helper()

	orders := memory.NewOrderRepository()
	catalog := memory.NewProductRepository()
	timeline := memory.NewTimelineRepository()
	outbox := memory.NewOutboxRepository()

	mgr := NewManagerWithoutMetrics(orders, catalog, timeline, outbox, log.WithField("test", "lifecycle"))
	return mgr, catalog, orders, timeline
}

func seedProduct(t *testing.T, catalog domain.CatalogRepository, quantity, moq int32) domain.Product {
	t.Helper()

	product := domain.Product{
		ID:         "product-1",
		Title:      "Ceramic mug",
		Owner:      "seller@shop.test",
		PriceMinor: 1500,
		Quantity:   quantity,
		MOQ:        moq,
		Status:     domain.ProductStatusActive,
		CreatedAt:  time.Now().UTC(),
	}
	if err := catalog.Create(context.Background(), product); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func draftOrder(productID string, qty int32) domain.Order {
	return domain.Order{
		ProductID:     productID,
		BuyerEmail:    "buyer@shop.test",
		OrderQuantity: qty,
		TotalPrice:    1500 * int64(qty),
		PaymentOption: domain.PaymentOptionCashOnDelivery,
	}
}

func TestCreateOrder(t *testing.T) {
	mgr, catalog, _, _ := newTestManager(t)
	product := seedProduct(t, catalog, 10, 2)

	order, err := mgr.Create(context.Background(), draftOrder(product.ID, 3))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if order.ID == "" {
		t.Fatal("expected generated order id")
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending status, got %s", order.Status)
	}
	if order.PaymentStatus != domain.PaymentStatusPending {
		t.Fatalf("cash on delivery must start pending, got %s", order.PaymentStatus)
	}
	if order.OrderTo != product.Owner {
		t.Fatalf("order must be routed to product owner, got %s", order.OrderTo)
	}

	got, err := catalog.FindByID(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("find product: %v", err)
	}
	if got.Quantity != 7 {
		t.Fatalf("expected stock 7 after decrement, got %d", got.Quantity)
	}
}

func TestCreateOrderPrepaidMarkedPaid(t *testing.T) {
	mgr, catalog, _, _ := newTestManager(t)
	product := seedProduct(t, catalog, 10, 1)

	draft := draftOrder(product.ID, 2)
	draft.PaymentOption = domain.PaymentOptionPrepaid
	draft.TransactionID = "txn-1"

	order, err := mgr.Create(context.Background(), draft)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.PaymentStatus != domain.PaymentStatusPaid {
		t.Fatalf("prepaid order must start paid, got %s", order.PaymentStatus)
	}
}

func TestCreateOrderValidationChain(t *testing.T) {
	mgr, catalog, _, _ := newTestManager(t)
	seedProduct(t, catalog, 5, 2)

	cases := []struct {
		name  string
		draft domain.Order
		want  error
	}{
		{
			name:  "missing fields",
			draft: domain.Order{ProductID: "product-1"},
			want:  domain.ErrMissingRequiredFields,
		},
		{
			name:  "product not found",
			draft: draftOrder("product-missing", 2),
			want:  domain.ErrProductNotFound,
		},
		{
			name:  "below moq",
			draft: draftOrder("product-1", 1),
			want:  domain.ErrBelowMinOrderQty,
		},
		{
			name:  "exceeds stock",
			draft: draftOrder("product-1", 6),
			want:  domain.ErrExceedsStock,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := mgr.Create(context.Background(), tc.draft); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	// Ни одна из неудачных заявок не должна была списать остаток.
	got, err := catalog.FindByID(context.Background(), "product-1")
	if err != nil {
		t.Fatalf("find product: %v", err)
	}
	if got.Quantity != 5 {
		t.Fatalf("failed creates must not change stock, got %d", got.Quantity)
	}
}

func TestCreateOrderMOQMessageContainsThreshold(t *testing.T) {
	mgr, catalog, _, _ := newTestManager(t)
	seedProduct(t, catalog, 10, 4)

	_, err := mgr.Create(context.Background(), draftOrder("product-1", 2))
	if !errors.Is(err, domain.ErrBelowMinOrderQty) {
		t.Fatalf("expected ErrBelowMinOrderQty, got %v", err)
	}
	if !strings.Contains(err.Error(), "4") {
		t.Fatalf("error must mention the moq threshold: %v", err)
	}
}

func TestCreateOrderAppendsTimeline(t *testing.T) {
	mgr, catalog, _, timeline := newTestManager(t)
	product := seedProduct(t, catalog, 10, 1)

	order, err := mgr.Create(context.Background(), draftOrder(product.ID, 2))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	events, err := timeline.List(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("list timeline: %v", err)
	}
	if len(events) != 1 || events[0].Type != "order.created" {
		t.Fatalf("unexpected timeline: %+v", events)
	}
}

func TestApproveWorkflow(t *testing.T) {
	mgr, catalog, _, _ := newTestManager(t)
	product := seedProduct(t, catalog, 10, 1)

	order, err := mgr.Create(context.Background(), draftOrder(product.ID, 2))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	pending, err := mgr.ListPendingForManager(context.Background(), product.Owner)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != order.ID {
		t.Fatalf("unexpected pending queue: %+v", pending)
	}

	if err := mgr.Approve(context.Background(), order.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := mgr.Approve(context.Background(), order.ID); !errors.Is(err, domain.ErrOrderAlreadyApproved) {
		t.Fatalf("second approve must conflict, got %v", err)
	}

	approved, err := mgr.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if approved.Status != domain.OrderStatusApproved || approved.ApprovedAt == nil {
		t.Fatalf("unexpected approved order: %+v", approved)
	}

	// Очередь менеджера больше не содержит подтверждённый заказ.
	pending, err = mgr.ListPendingForManager(context.Background(), product.Owner)
	if err != nil {
		t.Fatalf("list pending after approve: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty queue, got %d", len(pending))
	}
}

func TestRejectWorkflow(t *testing.T) {
	mgr, catalog, _, _ := newTestManager(t)
	product := seedProduct(t, catalog, 10, 1)

	order, err := mgr.Create(context.Background(), draftOrder(product.ID, 2))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := mgr.Reject(context.Background(), order.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := mgr.Reject(context.Background(), order.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("second reject must fail with not found, got %v", err)
	}
	if err := mgr.Approve(context.Background(), order.ID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("approve after reject must fail with not found, got %v", err)
	}

	rejected, err := mgr.Get(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if rejected.Status != domain.OrderStatusRejected || rejected.RejectedAt == nil {
		t.Fatalf("unexpected rejected order: %+v", rejected)
	}
}

func TestApproveMissingOrder(t *testing.T) {
	mgr, _, _, _ := newTestManager(t)

	if err := mgr.Approve(context.Background(), "order-missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if err := mgr.Reject(context.Background(), "order-missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestCreateOrderStockInconsistency(t *testing.T) {
	orders := memory.NewOrderRepository()
	timeline := memory.NewTimelineRepository()
	outbox := memory.NewOutboxRepository()
	catalog := &brokenDecrementCatalog{inner: memory.NewProductRepository()}

	mgr := NewManagerWithoutMetrics(orders, catalog, timeline, outbox, log.WithField("test", "inconsistency"))

	product := seedProduct(t, catalog, 10, 1)
	_, err := mgr.Create(context.Background(), draftOrder(product.ID, 2))
	if !errors.Is(err, domain.ErrStockInconsistent) {
		t.Fatalf("expected ErrStockInconsistent, got %v", err)
	}
}

// brokenDecrementCatalog пропускает чтение, но ломает списание остатка.
type brokenDecrementCatalog struct {
	inner domain.CatalogRepository
}

func (c *brokenDecrementCatalog) Create(ctx context.Context, product domain.Product) error {
	return c.inner.Create(ctx, product)
}
func (c *brokenDecrementCatalog) FindByID(ctx context.Context, id string) (domain.Product, error) {
	return c.inner.FindByID(ctx, id)
}
func (c *brokenDecrementCatalog) DecrementStock(context.Context, string, int32) error {
	return errors.New("storage unavailable")
}
func (c *brokenDecrementCatalog) ListByOwner(ctx context.Context, owner string, page, limit int) ([]domain.Product, int, error) {
	return c.inner.ListByOwner(ctx, owner, page, limit)
}
func (c *brokenDecrementCatalog) Delete(ctx context.Context, id string) error {
	return c.inner.Delete(ctx, id)
}
func (c *brokenDecrementCatalog) SetShowOnHome(ctx context.Context, id string, show bool) error {
	return c.inner.SetShowOnHome(ctx, id, show)
}
