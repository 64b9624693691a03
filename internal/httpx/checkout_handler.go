package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/oneshop/marketplace-orders/internal/checkout"
)

type CheckoutService interface {
	ProcessCheckout(ctx context.Context, buyerID string, items []checkout.CartItem, locationID string) (*checkout.CheckoutResult, error)
	PreviewGrouping(ctx context.Context, items []checkout.CartItem) (*checkout.PreviewResult, error)
}

type CheckoutHandler struct {
	Svc CheckoutService
	Log *zap.Logger
}

type checkoutReq struct {
	BuyerID    string              `json:"buyer_id"`
	Items      []checkout.CartItem `json:"items"`
	LocationID string              `json:"location_id"`
}

type previewReq struct {
	Items []checkout.CartItem `json:"items"`
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.processCheckout)
	r.Post("/checkout/preview", h.previewCheckout)
}

func (h *CheckoutHandler) processCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.ProcessCheckout(ctx, req.BuyerID, req.Items, req.LocationID)
	if err != nil {
		h.Log.Warn("checkout failed", zap.String("buyer_id", req.BuyerID), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *CheckoutHandler) previewCheckout(w http.ResponseWriter, r *http.Request) {
	var req previewReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	res, err := h.Svc.PreviewGrouping(ctx, req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
