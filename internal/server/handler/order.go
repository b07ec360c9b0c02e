package handler

import (
	"net/http"

	"github.com/alanyoungcy/spotarb/internal/domain"
)

// OrderSource exposes the open resting orders. The ledger satisfies it.
type OrderSource interface {
	RestingOrders() []domain.RestingOrder
	RestingOrdersByAsset(asset string) []domain.RestingOrder
}

// OrderHandler serves the resting-order endpoints.
type OrderHandler struct {
	source OrderSource
}

// NewOrderHandler creates an OrderHandler over the given source.
func NewOrderHandler(source OrderSource) *OrderHandler {
	return &OrderHandler{source: source}
}

// listOrdersResponse wraps the resting-order list response.
type listOrdersResponse struct {
	Orders []domain.RestingOrder `json:"orders"`
}

// ListOrders returns the open resting orders, optionally filtered by asset.
// GET /api/orders?asset=BTC
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var orders []domain.RestingOrder
	if asset := r.URL.Query().Get("asset"); asset != "" {
		orders = h.source.RestingOrdersByAsset(asset)
	} else {
		orders = h.source.RestingOrders()
	}

	if orders == nil {
		orders = []domain.RestingOrder{}
	}
	writeJSON(w, http.StatusOK, listOrdersResponse{Orders: orders})
}
