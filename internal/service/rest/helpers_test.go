package rest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/service/intent"
	"github.com/vladislavdragonenkov/marketplace/internal/service/order"
	"github.com/vladislavdragonenkov/marketplace/internal/service/payment"
	"github.com/vladislavdragonenkov/marketplace/internal/storage/memory"
)

type testEnv struct {
	router    *chi.Mux
	catalog   domain.CatalogRepository
	users     domain.IdentityRepository
	processor *intent.MockProcessor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := log.New()
	logger.SetOutput(io.Discard)
	entry := logger.WithField("component", "rest-test")

	catalog := memory.NewProductRepository()
	users := memory.NewUserRepository()
	orders := memory.NewOrderRepository()
	payments := memory.NewPaymentRepository()
	timeline := memory.NewTimelineRepository()
	outbox := memory.NewOutboxRepository()

	processor := intent.NewMockProcessor()

	handler := NewHandler(
		order.NewManagerWithoutMetrics(orders, catalog, timeline, outbox, entry),
		payment.NewRecorderWithoutMetrics(payments, outbox, entry),
		intent.NewServiceWithoutMetrics(processor, entry),
		catalog,
		users,
		entry,
	)

	return &testEnv{
		router:    NewRouter(handler),
		catalog:   catalog,
		users:     users,
		processor: processor,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func (e *testEnv) seedProduct(t *testing.T, owner string, quantity, moq int32) string {
	t.Helper()

	rec := e.do(t, http.MethodPost, "/products", map[string]any{
		"title":      "ceramic mug",
		"owner":      owner,
		"priceMinor": 1500,
		"quantity":   quantity,
		"moq":        moq,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("seed product failed with status %d: %s", rec.Code, rec.Body.String())
	}
	id, ok := decodeBody(t, rec)["productId"].(string)
	if !ok || id == "" {
		t.Fatal("seed product response has no productId")
	}
	return id
}
