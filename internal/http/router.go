package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(correlationID)
	r.Use(middleware.Logger)
	r.Use(h.recoverJSON)
	if len(h.origins) > 0 {
		r.Use(cors(h.origins))
	}

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/users", h.CreateUser)

		r.Get("/products", h.ListProducts)
		r.Get("/products/available", h.ListAvailableProducts)
		r.Get("/products/search", h.SearchProducts)
		r.Get("/products/{productId}", h.GetProduct)
		r.Get("/categories", h.ListCategories)
		r.Get("/categories/{categoryId}/products", h.ListCategoryProducts)

		r.Group(func(r chi.Router) {
			r.Use(h.requireUser)

			r.Get("/users/me", h.GetMe)

			r.Get("/cart", h.GetCart)
			r.Delete("/cart", h.ClearCart)
			r.Post("/cart/items", h.AddCartItem)
			r.Put("/cart/items/{productId}", h.UpdateCartItem)
			r.Delete("/cart/items/{productId}", h.RemoveCartItem)

			r.Post("/orders", h.PlaceOrder)
			r.Get("/orders/mine", h.ListMyOrders)
			r.Get("/orders/{orderId}", h.GetOrder)

			r.Group(func(r chi.Router) {
				r.Use(h.requireAdmin)

				r.Post("/categories", h.CreateCategory)
				r.Post("/products", h.CreateProduct)
				r.Put("/products/{productId}", h.UpdateProduct)
				r.Delete("/products/{productId}", h.DeleteProduct)

				r.Route("/admin", func(r chi.Router) {
					r.Get("/orders", h.ListAllOrders)
					r.Get("/orders/status/{status}", h.ListOrdersByStatus)
					r.Put("/orders/{orderId}/status", h.UpdateOrderStatus)
					r.Get("/orders/{orderId}/history", h.OrderStatusHistory)
					r.Get("/products/low-stock", h.ListLowStock)
					r.Get("/users", h.ListUsers)
					r.Get("/users/{userId}", h.GetUser)
					r.Put("/users/{userId}/role", h.UpdateUserRole)
					r.Get("/stats", h.Stats)
				})
			})
		})
	})

	return r
}
