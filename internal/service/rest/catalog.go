package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

type createProductRequest struct {
	Title      string `json:"title"`
	Owner      string `json:"owner"`
	PriceMinor int64  `json:"priceMinor"`
	Quantity   int32  `json:"quantity"`
	MOQ        int32  `json:"moq"`
}

type productResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Owner      string    `json:"owner"`
	PriceMinor int64     `json:"priceMinor"`
	Quantity   int32     `json:"quantity"`
	MOQ        int32     `json:"moq"`
	Status     string    `json:"status"`
	ShowOnHome bool      `json:"showOnHome"`
	CreatedAt  time.Time `json:"createdAt"`
}

type showOnHomeRequest struct {
	ShowOnHome bool `json:"showOnHome"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:         p.ID,
		Title:      p.Title,
		Owner:      p.Owner,
		PriceMinor: p.PriceMinor,
		Quantity:   p.Quantity,
		MOQ:        p.MOQ,
		Status:     string(p.Status),
		ShowOnHome: p.ShowOnHome,
		CreatedAt:  p.CreatedAt,
	}
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failBody("invalid json"))
		return
	}

	moq := req.MOQ
	if moq == 0 {
		moq = 1
	}
	product := domain.Product{
		ID:         uuid.NewString(),
		Title:      req.Title,
		Owner:      req.Owner,
		PriceMinor: req.PriceMinor,
		Quantity:   req.Quantity,
		MOQ:        moq,
		Status:     domain.ProductStatusActive,
		ShowOnHome: false,
		CreatedAt:  time.Now().UTC(),
	}

	if errs := product.Validate(); len(errs) > 0 {
		h.respondError(w, errs[0])
		return
	}

	if err := h.catalog.Create(r.Context(), product); err != nil {
		h.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"productId": product.ID,
	})
}

func (h *Handler) listAdminProducts(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	products, total, err := h.catalog.ListByOwner(r.Context(), owner, page, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	totalPages := (total + limit - 1) / limit

	result := make([]productResponse, 0, len(products))
	for _, p := range products {
		result = append(result, toProductResponse(p))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":      total,
		"page":       page,
		"limit":      limit,
		"totalPages": totalPages,
		"products":   result,
	})
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if err := h.catalog.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "product deleted",
	})
}

func (h *Handler) setShowOnHome(w http.ResponseWriter, r *http.Request) {
	id, err := parsePathID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var req showOnHomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, failBody("invalid json"))
		return
	}

	if err := h.catalog.SetShowOnHome(r.Context(), id, req.ShowOnHome); err != nil {
		h.respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "product updated",
	})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
