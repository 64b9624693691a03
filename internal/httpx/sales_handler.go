package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/oneshop/marketplace-orders/internal/directsale"
)

type DirectSaleService interface {
	CreateSale(ctx context.Context, in directsale.SaleInput) (*directsale.SaleResult, error)
	SearchAvailable(ctx context.Context, query, category string, limit, offset int) (*directsale.SearchResult, error)
	DailySummary(ctx context.Context, day time.Time) (*directsale.DailySummary, error)
}

type SalesHandler struct {
	Svc DirectSaleService
	Log *zap.Logger
}

func (h *SalesHandler) Register(r *chi.Mux) {
	r.Post("/sales/direct", h.createSale)
	r.Get("/sales/summary", h.dailySummary)
	r.Get("/products/available", h.searchAvailable)
}

func (h *SalesHandler) createSale(w http.ResponseWriter, r *http.Request) {
	var in directsale.SaleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Svc.CreateSale(ctx, in)
	if err != nil {
		h.Log.Warn("direct sale failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *SalesHandler) searchAvailable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	res, err := h.Svc.SearchAvailable(ctx, q.Get("search"), q.Get("category"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *SalesHandler) dailySummary(w http.ResponseWriter, r *http.Request) {
	var day time.Time
	if d := r.URL.Query().Get("date"); d != "" {
		parsed, err := time.Parse("2006-01-02", d)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: "date must be YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	res, err := h.Svc.DailySummary(ctx, day)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
