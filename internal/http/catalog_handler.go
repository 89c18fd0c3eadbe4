package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/paging"
)

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	page, err := h.catalog.List(ctx, paging.FromQuery(r.URL.Query().Get))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) ListAvailableProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	page, err := h.catalog.ListAvailable(ctx, paging.FromQuery(r.URL.Query().Get))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		writeError(w, http.StatusBadRequest, "keyword is required")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	page, err := h.catalog.Search(ctx, keyword, paging.FromQuery(r.URL.Query().Get))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	p, err := h.catalog.Get(ctx, chi.URLParam(r, "productId"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// ListCategoryProducts lists a category's products, narrowed by an optional keyword.
func (h *Handler) ListCategoryProducts(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "categoryId")
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	req := paging.FromQuery(r.URL.Query().Get)

	ctx, cancel := h.requestContext(r)
	defer cancel()

	if _, err := h.catalog.GetCategory(ctx, categoryID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var (
		page paging.Page[catalog.Product]
		err  error
	)
	if keyword != "" {
		page, err = h.catalog.SearchInCategory(ctx, categoryID, keyword, req)
	} else {
		page, err = h.catalog.ListByCategory(ctx, categoryID, req)
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	c := &catalog.Category{Name: req.Name, Description: req.Description}
	if err := h.catalog.CreateCategory(ctx, c); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

type productRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	CategoryID    *string         `json:"categoryId"`
}

func (req productRequest) toProduct(id string) *catalog.Product {
	return &catalog.Product{
		ID:            id,
		Name:          strings.TrimSpace(req.Name),
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		CategoryID:    req.CategoryID,
	}
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	p := req.toProduct("")
	if err := h.catalog.Create(ctx, p); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	p := req.toProduct(chi.URLParam(r, "productId"))
	if err := h.catalog.Update(ctx, p); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	if err := h.catalog.Delete(ctx, chi.URLParam(r, "productId")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
