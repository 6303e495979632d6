// Package rest реализует HTTP API поверх доменных сервисов. Все доменные
// ошибки переводятся в статусы ровно в одном месте (respondError), тела
// ответов при сбоях несут стабильное message и success=false.
package rest

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	"github.com/vladislavdragonenkov/marketplace/internal/service/intent"
	"github.com/vladislavdragonenkov/marketplace/internal/service/order"
	"github.com/vladislavdragonenkov/marketplace/internal/service/payment"
)

// Handler связывает HTTP-маршруты с доменными сервисами и хранилищами.
type Handler struct {
	orders   order.Manager
	payments payment.Recorder
	intents  intent.Service
	catalog  domain.CatalogRepository
	users    domain.IdentityRepository
	logger   *log.Entry
}

// NewHandler создаёт HTTP-handler со всеми зависимостями.
func NewHandler(
	orders order.Manager,
	payments payment.Recorder,
	intents intent.Service,
	catalog domain.CatalogRepository,
	users domain.IdentityRepository,
	logger *log.Entry,
) *Handler {
	if logger == nil {
		logger = log.New().WithField("component", "rest")
	}
	return &Handler{
		orders:   orders,
		payments: payments,
		intents:  intents,
		catalog:  catalog,
		users:    users,
		logger:   logger,
	}
}

// Register вешает все маршруты API на роутер.
func (h *Handler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/pending/{email}", h.listPendingOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Patch("/orders/approve/{id}", h.approveOrder)
	r.Patch("/orders/reject/{id}", h.rejectOrder)

	r.Post("/payments", h.recordPayment)
	r.Post("/create-payment-intent", h.createPaymentIntent)

	r.Post("/users", h.createUser)
	r.Get("/users", h.listUsers)
	r.Get("/users/{email}", h.getUser)

	r.Post("/products", h.createProduct)
	r.Get("/admin/products", h.listAdminProducts)
	r.Delete("/products/{id}", h.deleteProduct)
	r.Patch("/products/show-home/{id}", h.setShowOnHome)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func failBody(message string) map[string]any {
	return map[string]any{"success": false, "message": message}
}

// respondError — единственная точка перевода доменных ошибок в HTTP-статусы.
// Внутренние ошибки наружу не детализируются.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, failBody(err.Error()))
	case domain.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, failBody(err.Error()))
	case domain.IsConflict(err):
		writeJSON(w, http.StatusConflict, failBody(err.Error()))
	case domain.IsGateway(err):
		h.logger.WithError(err).Error("payment gateway failure")
		writeJSON(w, http.StatusInternalServerError, failBody(domain.ErrGatewayFailure.Error()))
	case domain.IsFatalInconsistency(err):
		// Заказ записан, остаток не списан: фиксируем для ручной сверки.
		h.logger.WithError(err).Error("fatal inconsistency, manual reconciliation required")
		writeJSON(w, http.StatusInternalServerError, failBody(domain.ErrStockInconsistent.Error()))
	default:
		h.logger.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, failBody("internal server error"))
	}
}

// parsePathID читает и валидирует UUID из пути. Непарсящийся идентификатор —
// ошибка валидации, не not-found.
func parsePathID(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "id")
	if _, err := uuid.Parse(raw); err != nil {
		return "", domain.ErrInvalidID
	}
	return raw, nil
}

// validateBodyProductID проверяет идентификатор товара из тела запроса по
// тому же правилу, что и parsePathID: непарсящийся UUID — ошибка
// валидации, не not-found. Пустое значение пропускается, его отлавливает
// проверка обязательных полей.
func validateBodyProductID(raw string) error {
	if raw == "" {
		return nil
	}
	if _, err := uuid.Parse(raw); err != nil {
		return domain.ErrInvalidID
	}
	return nil
}
