package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	c, err := h.cart.Get(ctx, userIDFrom(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil || req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "productId and quantity are required")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	c, err := h.cart.AddItem(ctx, userIDFrom(r.Context()), req.ProductID, req.Quantity)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	c, err := h.cart.UpdateItem(ctx, userIDFrom(r.Context()), chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	c, err := h.cart.RemoveItem(ctx, userIDFrom(r.Context()), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	if err := h.cart.Clear(ctx, userIDFrom(r.Context())); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
