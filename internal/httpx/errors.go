package httpx

import (
	"errors"
	"net/http"

	"github.com/oneshop/marketplace-orders/internal/catalog"
	"github.com/oneshop/marketplace-orders/internal/checkout"
	"github.com/oneshop/marketplace-orders/internal/directsale"
)

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Detail  any    `json:"detail,omitempty"`
}

// writeError maps domain errors onto HTTP codes without leaking store
// internals. Stock shortages carry their per-item detail.
func writeError(w http.ResponseWriter, err error) {
	var shortage *checkout.ShortageError
	if errors.As(err, &shortage) {
		writeJSON(w, http.StatusConflict, errorBody{
			Error:   "insufficient_stock",
			Message: shortage.Error(),
			Detail:  shortage.Items,
		})
		return
	}

	switch {
	case errors.Is(err, checkout.ErrMissingBuyer),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrNoResolvableItems),
		errors.Is(err, checkout.ErrInvalidStatus),
		errors.Is(err, checkout.ErrSameStatus),
		errors.Is(err, checkout.ErrInvalidTransition),
		errors.Is(err, directsale.ErrNoItems),
		errors.Is(err, directsale.ErrInvalidItem),
		errors.Is(err, directsale.ErrMissingCustomer):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation", Message: err.Error()})

	case errors.Is(err, checkout.ErrOrderNotFound),
		errors.Is(err, checkout.ErrNotificationNotFound),
		errors.Is(err, catalog.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: err.Error()})

	case errors.Is(err, catalog.ErrInsufficientStock):
		writeJSON(w, http.StatusConflict, errorBody{Error: "insufficient_stock", Message: err.Error()})

	case errors.Is(err, checkout.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: "conflict", Message: "conflicting or referenced data"})

	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal error"})
	}
}
