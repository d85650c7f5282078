package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shophive/cart-service/internal/domain"
	"github.com/shophive/cart-service/internal/service"
)

// CartAPI is what the handlers need from the cart service.
type CartAPI interface {
	Add(ctx context.Context, shopper service.Shopper, productID int64, quantity int) error
	SetQuantity(ctx context.Context, shopper service.Shopper, productID int64, quantity int) error
	Remove(ctx context.Context, shopper service.Shopper, productID int64) (bool, error)
	View(ctx context.Context, shopper service.Shopper) (*domain.CartView, error)
	Clear(ctx context.Context, shopper service.Shopper) error
	MergeOnAuth(ctx context.Context, token string, userID int64) error
}

type CartHandler struct {
	carts   CartAPI
	timeout time.Duration
}

func NewCartHandler(carts CartAPI, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// UpdateCartRequestDTO is the bulk update form: new quantities per
// product id, and optionally one product to remove outright.
type UpdateCartRequestDTO struct {
	Quantities map[string]int `json:"quantities"`
	Remove     int64          `json:"remove,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.carts.View(ctx, shopperFromContext(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	shopper := shopperFromContext(r.Context())
	if err := h.carts.Add(ctx, shopper, req.ProductID, req.Quantity); err != nil {
		handleDomainError(w, err)
		return
	}

	view, err := h.carts.View(ctx, shopper)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (h *CartHandler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateCartRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	shopper := shopperFromContext(r.Context())

	if req.Remove > 0 {
		if _, err := h.carts.Remove(ctx, shopper, req.Remove); err != nil {
			handleDomainError(w, err)
			return
		}
	}

	for key, quantity := range req.Quantities {
		productID, err := strconv.ParseInt(key, 10, 64)
		if err != nil || productID <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_product_id", "quantity keys must be positive product ids")
			return
		}
		if quantity > 99 {
			respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
			return
		}
		if err := h.carts.SetQuantity(ctx, shopper, productID, quantity); err != nil {
			handleDomainError(w, err)
			return
		}
	}

	view, err := h.carts.View(ctx, shopper)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// RemoveItem is the JSON API removal; anonymous carts shed lines
// through UpdateCart instead.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	shopper := shopperFromContext(r.Context())
	if !shopper.Authenticated {
		handleDomainError(w, domain.ErrUnauthenticated)
		return
	}

	productIDStr := chi.URLParam(r, "product_id")
	productID, err := strconv.ParseInt(productIDStr, 10, 64)
	if err != nil || productID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	removed, err := h.carts.Remove(ctx, shopper, productID)
	if err != nil {
		handleDomainError(w, err)
		return
	}
	if !removed {
		handleDomainError(w, domain.ErrLineNotFound)
		return
	}

	view, err := h.carts.View(ctx, shopper)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	shopper := shopperFromContext(r.Context())
	if err := h.carts.Clear(ctx, shopper); err != nil {
		handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, &domain.CartView{Lines: []domain.CartViewLine{}})
}
