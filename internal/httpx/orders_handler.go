package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/oneshop/marketplace-orders/internal/catalog"
	"github.com/oneshop/marketplace-orders/internal/checkout"
)

type StatusChanger interface {
	ChangeStatus(ctx context.Context, orderID string, st checkout.Status) (*checkout.TransitionResult, error)
}

type OrderQueries interface {
	GetOrder(ctx context.Context, orderID string) (*checkout.Order, error)
	ListVendorOrders(ctx context.Context, sellerID string) ([]checkout.VendorOrder, error)
	GetMasterSummary(ctx context.Context, masterID string) (*checkout.MasterSummary, error)
	ListNotifications(ctx context.Context, recipientID string) ([]checkout.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID string) error
}

type StockQueries interface {
	OrderStockSummary(ctx context.Context, orderID string) ([]catalog.LineStock, error)
	ListLowStock(ctx context.Context, threshold int) ([]catalog.Product, error)
}

// OrderCache stores and serves the same serialized order JSON the handler
// would build from the database, so cache state never changes the response
// shape.
type OrderCache interface {
	Get(ctx context.Context, orderID string) ([]byte, bool)
	Set(ctx context.Context, orderID string, raw []byte)
}

type OrdersHandler struct {
	Coordinator StatusChanger
	Orders      OrderQueries
	Stock       StockQueries
	Cache       OrderCache
	Log         *zap.Logger

	LowStockThreshold int
}

type changeStatusReq struct {
	NewStatus string `json:"new_status"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Put("/orders/{id}/status", h.changeStatus)
	r.Get("/orders/{id}/stock", h.orderStock)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/vendor/{sellerID}", h.vendorOrders)
	r.Get("/orders/master/{id}", h.masterSummary)
	r.Get("/products/low-stock", h.lowStock)
	r.Get("/notifications/{userID}", h.listNotifications)
	r.Put("/notifications/{id}/read", h.markRead)
}

func (h *OrdersHandler) changeStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req changeStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: "invalid json"})
		return
	}
	st, ok := checkout.ParseStatus(req.NewStatus)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "validation",
			Message: fmt.Sprintf("invalid status %q: must be PENDING, PROCESSING or DELIVERED", req.NewStatus),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Coordinator.ChangeStatus(ctx, orderID, st)
	if err != nil {
		h.Log.Warn("status change failed",
			zap.String("order_id", orderID),
			zap.String("new_status", string(st)),
			zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache first, DB as the source of truth
	if h.Cache != nil {
		if raw, ok := h.Cache.Get(ctx, orderID); ok {
			writeJSON(w, http.StatusOK, json.RawMessage(raw))
			return
		}
	}

	o, err := h.Orders.GetOrder(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	if h.Cache != nil {
		if raw, err := json.Marshal(o); err == nil {
			h.Cache.Set(ctx, orderID, raw)
		}
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) orderStock(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if _, err := h.Orders.GetOrder(ctx, orderID); err != nil {
		writeError(w, err)
		return
	}
	lines, err := h.Stock.OrderStockSummary(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"order_id": orderID,
		"lines":    lines,
	})
}

func (h *OrdersHandler) vendorOrders(w http.ResponseWriter, r *http.Request) {
	sellerID := chi.URLParam(r, "sellerID")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	orders, err := h.Orders.ListVendorOrders(ctx, sellerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"orders":  orders,
		"total":   len(orders),
	})
}

func (h *OrdersHandler) masterSummary(w http.ResponseWriter, r *http.Request) {
	masterID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	sum, err := h.Orders.GetMasterSummary(ctx, masterID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *OrdersHandler) lowStock(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	threshold := h.LowStockThreshold
	if threshold <= 0 {
		threshold = 5
	}
	products, err := h.Stock.ListLowStock(ctx, threshold)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"threshold": threshold,
		"products":  products,
	})
}

func (h *OrdersHandler) listNotifications(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ns, err := h.Orders.ListNotifications(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"notifications": ns,
		"total":         len(ns),
	})
}

func (h *OrdersHandler) markRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Orders.MarkNotificationRead(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
