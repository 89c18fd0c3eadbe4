package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/paging"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/user"
)

const defaultLowStockThreshold = 10

func (h *Handler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	page, err := h.orders.ListAll(ctx, paging.FromQuery(r.URL.Query().Get))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) ListOrdersByStatus(w http.ResponseWriter, r *http.Request) {
	status, err := order.ParseStatus(chi.URLParam(r, "status"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	orders, err := h.orders.ListByStatus(ctx, status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status, err := order.ParseStatus(req.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	o, change, err := h.orders.UpdateStatus(ctx, chi.URLParam(r, "orderId"), status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if change != nil {
		pubCtx := context.WithoutCancel(r.Context())
		if err := h.events.PublishOrderStatusChanged(pubCtx, eventMeta(r.Context()), o, *change); err != nil {
			h.logger.Printf("publish OrderStatusChanged for order %s: %v", o.ID, err)
		}
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) OrderStatusHistory(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")

	ctx, cancel := h.requestContext(r)
	defer cancel()

	if _, err := h.orders.GetByID(ctx, orderID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	history, err := h.orders.History(ctx, orderID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	threshold := defaultLowStockThreshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "threshold must be a non-negative integer")
			return
		}
		threshold = n
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	products, err := h.catalog.ListLowStock(ctx, threshold)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	page, err := h.users.List(ctx, paging.FromQuery(r.URL.Query().Get))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type roleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	role, err := user.ParseRole(req.Role)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	u, err := h.users.UpdateRole(ctx, chi.URLParam(r, "userId"), role)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type statsResponse struct {
	TotalUsers    int64 `json:"totalUsers"`
	TotalProducts int64 `json:"totalProducts"`
	TotalOrders   int64 `json:"totalOrders"`
	PendingOrders int64 `json:"pendingOrders"`
}

// Stats runs the dashboard counts concurrently.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	var stats statsResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalUsers, err = h.users.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalProducts, err = h.catalog.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalOrders, err = h.orders.CountAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.PendingOrders, err = h.orders.CountByStatus(gctx, order.StatusPending)
		return err
	})
	if err := g.Wait(); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
