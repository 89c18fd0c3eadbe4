package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/paging"
)

type placeOrderRequest struct {
	ShippingAddress string `json:"shippingAddress"`
}

// PlaceOrder turns the caller's cart into an order. OrderPlaced is published
// for every committed order; a publish failure is logged only.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	o, err := h.checkout.PlaceOrder(ctx, userIDFrom(r.Context()), req.ShippingAddress)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	pubCtx := context.WithoutCancel(r.Context())
	if err := h.events.PublishOrderPlaced(pubCtx, eventMeta(r.Context()), o); err != nil {
		h.logger.Printf("publish OrderPlaced for order %s: %v", o.ID, err)
	}

	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	page, err := h.orders.ListByUser(ctx, userIDFrom(r.Context()), paging.FromQuery(r.URL.Query().Get))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetOrder returns an order to its owner or to an admin.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	o, err := h.orders.GetByID(ctx, chi.URLParam(r, "orderId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	uid := userIDFrom(r.Context())
	if o.UserID != uid {
		u, err := h.users.Get(ctx, uid)
		if err != nil || !u.IsAdmin() {
			writeError(w, http.StatusForbidden, "not allowed to view this order")
			return
		}
	}
	writeJSON(w, http.StatusOK, o)
}
