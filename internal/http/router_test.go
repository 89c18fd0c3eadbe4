package httpapi

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/paging"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/user"
)

type testEnv struct {
	catalog   *fakeCatalog
	users     *fakeUsers
	cart      *fakeCart
	placer    *fakePlacer
	orders    *fakeOrders
	publisher *fakePublisher
	router    http.Handler
}

func newTestEnv(t *testing.T, jwtSecret string) *testEnv {
	t.Helper()
	env := &testEnv{
		catalog: &fakeCatalog{products: map[string]catalog.Product{
			"widget": {ID: "widget", Name: "Widget", Price: decimal.RequireFromString("10.00"), StockQuantity: 5},
		}},
		users: &fakeUsers{users: map[string]user.User{
			"alice": {ID: "alice", Username: "alice", Role: user.RoleCustomer},
			"bob":   {ID: "bob", Username: "bob", Role: user.RoleCustomer},
			"root":  {ID: "root", Username: "admin", Role: user.RoleAdmin},
		}},
		cart:   &fakeCart{},
		placer: &fakePlacer{},
		orders: &fakeOrders{orders: map[string]*order.Order{
			"o1": {ID: "o1", UserID: "alice", Status: order.StatusPending, TotalAmount: decimal.RequireFromString("25.00"), Items: []order.Item{}},
		}, pending: 1},
		publisher: &fakePublisher{},
	}
	h := NewHandler(Deps{
		Logger:         log.New(io.Discard, "", 0),
		ServiceName:    "storefront-service",
		RequestTimeout: time.Second,
		JWTSecret:      jwtSecret,
		Catalog:        env.catalog,
		Users:          env.users,
		Cart:           env.cart,
		Checkout:       env.placer,
		Orders:         env.orders,
		Events:         env.publisher,
	})
	env.router = NewRouter(h)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "")
	rec := env.do(t, http.MethodGet, "/health", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "storefront-service", body["service"])
	assert.NotEmpty(t, rec.Header().Get(HeaderCorrelationID))
}

func TestProtectedRoutesRequireIdentity(t *testing.T) {
	env := newTestEnv(t, "")

	for _, path := range []string{"/api/cart", "/api/orders/mine", "/api/admin/stats"} {
		rec := env.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestListProductsPassesPaging(t *testing.T) {
	env := newTestEnv(t, "")
	rec := env.do(t, http.MethodGet, "/api/products?page=1&size=5&sortBy=price&sortDir=desc", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, paging.Request{Page: 1, Size: 5, SortBy: "price", SortDir: "DESC"}, env.catalog.lastRequest)
}

func TestGetProductNotFound(t *testing.T) {
	env := newTestEnv(t, "")
	rec := env.do(t, http.MethodGet, "/api/products/nope", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "nope")
}

func TestAddCartItemUsesCallerIdentity(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodPost, "/api/cart/items", "alice", `{"productId":"widget","quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"alice:widget"}, env.cart.addCalls)

	rec = env.do(t, http.MethodPost, "/api/cart/items", "alice", `{"productId":"widget","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceOrder(t *testing.T) {
	env := newTestEnv(t, "")
	env.placer.placed = env.orders.orders["o1"]

	rec := env.do(t, http.MethodPost, "/api/orders", "alice", `{"shippingAddress":"1 Main St"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "alice", env.placer.userID)
	assert.Equal(t, "1 Main St", env.placer.address)
	assert.Equal(t, "o1", decodeBody(t, rec)["id"])
	assert.Equal(t, []string{"o1"}, env.publisher.placed)
}

func TestPlaceOrderPublishFailureStillSucceeds(t *testing.T) {
	env := newTestEnv(t, "")
	env.placer.placed = env.orders.orders["o1"]
	env.publisher.err = assert.AnError

	rec := env.do(t, http.MethodPost, "/api/orders", "alice", `{"shippingAddress":"1 Main St"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPlaceOrderDoesNotRereadCommittedOrder(t *testing.T) {
	env := newTestEnv(t, "")
	env.orders.orders = map[string]*order.Order{}
	env.placer.placed = &order.Order{ID: "o7", UserID: "alice", Status: order.StatusPending, Items: []order.Item{}}

	rec := env.do(t, http.MethodPost, "/api/orders", "alice", `{"shippingAddress":"1 Main St"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "o7", decodeBody(t, rec)["id"])
	assert.Equal(t, []string{"o7"}, env.publisher.placed)
}

func TestPlaceOrderErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "insufficient stock", err: &catalog.InsufficientStockError{ProductID: "widget", Requested: 10, Available: 5}, want: http.StatusConflict},
		{name: "empty cart", err: &checkout.EmptyCartError{UserID: "alice"}, want: http.StatusBadRequest},
		{name: "no address", err: checkout.ErrShippingAddressRequired, want: http.StatusBadRequest},
		{name: "unknown user", err: &checkout.UserNotFoundError{UserID: "alice"}, want: http.StatusNotFound},
		{name: "infrastructure", err: assert.AnError, want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, "")
			env.placer.err = tt.err

			rec := env.do(t, http.MethodPost, "/api/orders", "alice", `{"shippingAddress":"x"}`)

			assert.Equal(t, tt.want, rec.Code)
			assert.Empty(t, env.publisher.placed)
		})
	}
}

func TestPlaceOrderInsufficientStockBody(t *testing.T) {
	env := newTestEnv(t, "")
	env.placer.err = &catalog.InsufficientStockError{ProductID: "widget", Requested: 10, Available: 0}

	rec := env.do(t, http.MethodPost, "/api/orders", "alice", `{"shippingAddress":"x"}`)

	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "widget", body["productId"])
	assert.Equal(t, float64(10), body["requested"])
	assert.Equal(t, float64(0), body["available"])
}

func TestGetOrderOwnership(t *testing.T) {
	env := newTestEnv(t, "")

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/orders/o1", "alice", "").Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/orders/o1", "bob", "").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/orders/o1", "root", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/orders/o9", "alice", "").Code)
}

func TestUnknownIDsAreNotFound(t *testing.T) {
	env := newTestEnv(t, "")
	env.cart.getErr = user.ErrNotFound

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/cart", "alice", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/products/xyz", "", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/orders/123", "alice", "").Code)
}

func TestDeleteOrderedProductConflicts(t *testing.T) {
	env := newTestEnv(t, "")
	env.catalog.deleteErr = catalog.ErrProductInUse

	rec := env.do(t, http.MethodDelete, "/api/products/widget", "root", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAdminGetUser(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodGet, "/api/admin/users/bob", "root", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob", decodeBody(t, rec)["username"])

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/admin/users/nobody", "root", "").Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/admin/users/bob", "alice", "").Code)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	env := newTestEnv(t, "")

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodGet, "/api/admin/stats", "alice", "").Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/admin/stats", "ghost", "").Code)
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, "/api/products", "alice", `{"name":"x","price":1}`).Code)
}

func TestUpdateOrderStatus(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(t, http.MethodPut, "/api/admin/orders/o1/status", "root", `{"status":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, "/api/admin/orders/o1/status", "root", `{"status":"shipped"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SHIPPED", decodeBody(t, rec)["status"])
	require.Len(t, env.publisher.changed, 1)
	assert.Equal(t, order.StatusPending, env.publisher.changed[0].From)

	rec = env.do(t, http.MethodPut, "/api/admin/orders/o1/status", "root", `{"status":"SHIPPED"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, env.publisher.changed, 1)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, "")
	env.catalog.count = 6

	rec := env.do(t, http.MethodGet, "/api/admin/stats", "root", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(3), body["totalUsers"])
	assert.Equal(t, float64(6), body["totalProducts"])
	assert.Equal(t, float64(1), body["totalOrders"])
	assert.Equal(t, float64(1), body["pendingOrders"])
}

func TestLowStockThreshold(t *testing.T) {
	env := newTestEnv(t, "")

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/admin/products/low-stock", "root", "").Code)
	assert.Equal(t, defaultLowStockThreshold, env.catalog.lastLowStock)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/admin/products/low-stock?threshold=3", "root", "").Code)
	assert.Equal(t, 3, env.catalog.lastLowStock)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/admin/products/low-stock?threshold=-1", "root", "").Code)
}

func signToken(t *testing.T, secret, subject string, method jwt.SigningMethod) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestBearerIdentity(t *testing.T) {
	env := newTestEnv(t, "s3cret")

	call := func(authz string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		req.Header.Set(HeaderUserID, "alice")
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, call(""), "header alone is not trusted when a secret is set")
	assert.Equal(t, http.StatusOK, call("Bearer "+signToken(t, "s3cret", "alice", jwt.SigningMethodHS256)))
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+signToken(t, "other", "alice", jwt.SigningMethodHS256)))
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+signToken(t, "s3cret", "alice", jwt.SigningMethodHS512)))
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+signToken(t, "s3cret", "", jwt.SigningMethodHS256)))
}
