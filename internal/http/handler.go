package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/user"
)

// CartService is the cart use-case surface the handlers call.
type CartService interface {
	Get(ctx context.Context, userID string) (*cart.Cart, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) (*cart.Cart, error)
	UpdateItem(ctx context.Context, userID, productID string, quantity int) (*cart.Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (*cart.Cart, error)
	Clear(ctx context.Context, userID string) error
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, userID, shippingAddress string) (*order.Order, error)
}

type Deps struct {
	Logger         *log.Logger
	ServiceName    string
	RequestTimeout time.Duration
	JWTSecret      string
	AllowOrigins   []string

	Catalog  catalog.Repository
	Users    user.Repository
	Cart     CartService
	Checkout OrderPlacer
	Orders   order.Repository
	Events   events.OrderEventPublisher
}

type Handler struct {
	logger      *log.Logger
	serviceName string
	timeout     time.Duration
	jwtSecret   []byte
	origins     []string

	catalog  catalog.Repository
	users    user.Repository
	cart     CartService
	checkout OrderPlacer
	orders   order.Repository
	events   events.OrderEventPublisher
}

func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	publisher := d.Events
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	var secret []byte
	if d.JWTSecret != "" {
		secret = []byte(d.JWTSecret)
	}
	return &Handler{
		logger:      logger,
		serviceName: d.ServiceName,
		timeout:     timeout,
		jwtSecret:   secret,
		origins:     d.AllowOrigins,
		catalog:     d.Catalog,
		users:       d.Users,
		cart:        d.Cart,
		checkout:    d.Checkout,
		orders:      d.Orders,
		events:      publisher,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": h.serviceName})
}

// requestContext bounds a handler's work by the configured request timeout.
func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.timeout)
}

type errorResponse struct {
	Error     string `json:"error"`
	ProductID string `json:"productId,omitempty"`
	Requested int    `json:"requested,omitempty"`
	Available *int   `json:"available,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeServiceError maps domain errors to status codes. Anything unknown is
// logged and reported as 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stockErr *catalog.InsufficientStockError
		emptyErr *checkout.EmptyCartError
		userErr  *checkout.UserNotFoundError
	)

	switch {
	case errors.As(err, &stockErr):
		available := stockErr.Available
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:     err.Error(),
			ProductID: stockErr.ProductID,
			Requested: stockErr.Requested,
			Available: &available,
		})
	case errors.As(err, &emptyErr),
		errors.Is(err, checkout.ErrShippingAddressRequired),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, catalog.ErrInvalidCategory),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, user.ErrInvalidRole),
		errors.Is(err, user.ErrInvalidUser):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &userErr),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, catalog.ErrCategoryNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrCategoryExists),
		errors.Is(err, catalog.ErrProductInUse),
		errors.Is(err, user.ErrUsernameTaken),
		errors.Is(err, user.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Printf("%s %s: timed out: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	default:
		h.logger.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
