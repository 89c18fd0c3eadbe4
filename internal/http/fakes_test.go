package httpapi

import (
	"context"
	"errors"
	"sync"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/paging"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/user"
)

// Fakes embed the interface they stand in for; calling a method a test did
// not expect panics on the nil embedded value.

type fakeCatalog struct {
	catalog.Repository
	products     map[string]catalog.Product
	lastRequest  paging.Request
	lastLowStock int
	count        int64
	deleteErr    error
}

func (f *fakeCatalog) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.products, id)
	return nil
}

func (f *fakeCatalog) Get(_ context.Context, id string) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, &catalog.ProductNotFoundError{ProductID: id}
	}
	return p, nil
}

func (f *fakeCatalog) List(_ context.Context, req paging.Request) (paging.Page[catalog.Product], error) {
	f.lastRequest = req
	var out []catalog.Product
	for _, p := range f.products {
		out = append(out, p)
	}
	return paging.NewPage(out, req, int64(len(out))), nil
}

func (f *fakeCatalog) ListLowStock(_ context.Context, threshold int) ([]catalog.Product, error) {
	f.lastLowStock = threshold
	return []catalog.Product{}, nil
}

func (f *fakeCatalog) Count(context.Context) (int64, error) {
	return f.count, nil
}

type fakeUsers struct {
	user.Repository
	users map[string]user.User
}

func (f *fakeUsers) Get(_ context.Context, id string) (user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) Count(context.Context) (int64, error) {
	return int64(len(f.users)), nil
}

type fakeCart struct {
	CartService
	addCalls []string
	getErr   error
}

func (f *fakeCart) Get(_ context.Context, userID string) (*cart.Cart, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &cart.Cart{ID: "cart-" + userID, UserID: userID, Items: []cart.Item{}}, nil
}

func (f *fakeCart) AddItem(_ context.Context, userID, productID string, quantity int) (*cart.Cart, error) {
	if quantity < 1 {
		return nil, cart.ErrInvalidQuantity
	}
	f.addCalls = append(f.addCalls, userID+":"+productID)
	return &cart.Cart{ID: "cart-" + userID, UserID: userID, Items: []cart.Item{{ProductID: productID, Quantity: quantity}}}, nil
}

type fakePlacer struct {
	placed  *order.Order
	err     error
	userID  string
	address string
}

func (f *fakePlacer) PlaceOrder(_ context.Context, userID, shippingAddress string) (*order.Order, error) {
	f.userID, f.address = userID, shippingAddress
	if f.err != nil {
		return nil, f.err
	}
	return f.placed, nil
}

type fakeOrders struct {
	order.Repository
	orders  map[string]*order.Order
	pending int64
}

func (f *fakeOrders) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id string, status order.Status) (*order.Order, *order.StatusChange, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, nil, order.ErrNotFound
	}
	if o.Status == status {
		return o, nil, nil
	}
	change := &order.StatusChange{OrderID: id, From: o.Status, To: status}
	o.Status = status
	return o, change, nil
}

func (f *fakeOrders) CountAll(context.Context) (int64, error) {
	return int64(len(f.orders)), nil
}

func (f *fakeOrders) CountByStatus(_ context.Context, status order.Status) (int64, error) {
	if status != order.StatusPending {
		return 0, errors.New("unexpected status")
	}
	return f.pending, nil
}

type fakePublisher struct {
	mu      sync.Mutex
	placed  []string
	changed []order.StatusChange
	err     error
}

func (f *fakePublisher) PublishOrderPlaced(_ context.Context, _ events.EventMeta, o *order.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, o.ID)
	return f.err
}

func (f *fakePublisher) PublishOrderStatusChanged(_ context.Context, _ events.EventMeta, _ *order.Order, c order.StatusChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changed = append(f.changed, c)
	return f.err
}
