package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

type createOrderRequest struct {
	ProductID     string `json:"productId"`
	BuyerEmail    string `json:"buyerEmail"`
	OrderQuantity int32  `json:"orderQuantity"`
	TotalPrice    int64  `json:"totalPrice"`
	PaymentOption string `json:"paymentOption"`
	TransactionID string `json:"transactionId"`
}

type orderResponse struct {
	ID            string     `json:"id"`
	ProductID     string     `json:"productId"`
	BuyerEmail    string     `json:"buyerEmail"`
	OrderQuantity int32      `json:"orderQuantity"`
	TotalPrice    int64      `json:"totalPrice"`
	PaymentOption string     `json:"paymentOption"`
	PaymentStatus string     `json:"paymentStatus"`
	TransactionID string     `json:"transactionId,omitempty"`
	Status        string     `json:"status"`
	OrderTo       string     `json:"orderTo"`
	CreatedAt     time.Time  `json:"createdAt"`
	ApprovedAt    *time.Time `json:"approvedAt,omitempty"`
	RejectedAt    *time.Time `json:"rejectedAt,omitempty"`
}

type timelineEventResponse struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

func toOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		ProductID:     o.ProductID,
		BuyerEmail:    o.BuyerEmail,
		OrderQuantity: o.OrderQuantity,
		TotalPrice:    o.TotalPrice,
		PaymentOption: string(o.PaymentOption),
		PaymentStatus: string(o.PaymentStatus),
		TransactionID: o.TransactionID,
		Status:        string(o.Status),
		OrderTo:       o.OrderTo,
		CreatedAt:     o.CreatedAt,
		ApprovedAt:    o.ApprovedAt,
		RejectedAt:    o.RejectedAt,
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failBody("invalid json"))
		return
	}

	draft := domain.Order{
		ProductID:     req.ProductID,
		BuyerEmail:    req.BuyerEmail,
		OrderQuantity: req.OrderQuantity,
		TotalPrice:    req.TotalPrice,
		PaymentOption: domain.PaymentOption(req.PaymentOption),
		TransactionID: req.TransactionID,
	}
	if draft.PaymentOption == "" {
		draft.PaymentOption = domain.PaymentOptionCashOnDelivery
	}

	if err := validateBodyProductID(draft.ProductID); err != nil {
		h.respondError(w, err)
		return
	}

	created, err := h.orders.Create(r.Context(), draft)
	if err != nil {
		h.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"orderId": created.ID,
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	found, err := h.orders.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}

	events, err := h.orders.Timeline(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("order_id", id).Warn("failed to load order timeline")
		events = nil
	}
	timeline := make([]timelineEventResponse, 0, len(events))
	for _, event := range events {
		timeline = append(timeline, timelineEventResponse{
			Type:     event.Type,
			Reason:   event.Reason,
			Occurred: event.Occurred,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"order":    toOrderResponse(found),
		"timeline": timeline,
	})
}

func (h *Handler) listPendingOrders(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	orders, err := h.orders.ListPendingForManager(r.Context(), email)
	if err != nil {
		h.respondError(w, err)
		return
	}

	result := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		result = append(result, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) approveOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if err := h.orders.Approve(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}

	h.logger.WithField("order_id", id).Debug("order approved via api")
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "order approved",
	})
}

func (h *Handler) rejectOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if err := h.orders.Reject(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}

	h.logger.WithFields(log.Fields{"order_id": id}).Debug("order rejected via api")
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "order rejected",
	})
}
