package rest

import (
	"encoding/json"
	"net/http"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

type recordPaymentRequest struct {
	ProductID     string `json:"productId"`
	BuyerEmail    string `json:"buyerEmail"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	TransactionID string `json:"transactionId"`
	PaymentMethod string `json:"paymentMethod"`
}

type createIntentRequest struct {
	Price     float64 `json:"price"`
	ProductID string  `json:"productId"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failBody("invalid json"))
		return
	}

	if err := validateBodyProductID(req.ProductID); err != nil {
		h.respondError(w, err)
		return
	}

	record, err := h.payments.Record(r.Context(), domain.PaymentRecord{
		ProductID:     req.ProductID,
		BuyerEmail:    req.BuyerEmail,
		Amount:        req.Amount,
		Currency:      req.Currency,
		TransactionID: req.TransactionID,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"paymentId": record.ID,
	})
}

func (h *Handler) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failBody("invalid json"))
		return
	}
	clientSecret, err := h.intents.CreateIntent(r.Context(), req.Price, req.ProductID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"clientSecret": clientSecret,
	})
}
