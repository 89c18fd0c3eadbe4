// Package checkout turns a user's cart into an order. Validation, stock
// decrement, order creation and cart clearing run in one unit of work, so a
// failed placement leaves stock, orders and the cart untouched.
package checkout

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

type CatalogStore interface {
	// LockProduct reads the product and holds its row lock until the unit of work ends.
	LockProduct(ctx context.Context, productID string) (catalog.Product, error)
	SetStock(ctx context.Context, productID string, quantity int) error
}

type CartStore interface {
	Lines(ctx context.Context, userID string) ([]cart.Line, error)
	ClearByUser(ctx context.Context, userID string) error
}

type OrderStore interface {
	Create(ctx context.Context, o *order.Order) error
}

type UserStore interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// Stores are the collaborators bound to a single unit of work.
type Stores struct {
	Catalog CatalogStore
	Carts   CartStore
	Orders  OrderStore
	Users   UserStore
}

// UnitOfWork runs fn atomically. If fn returns an error nothing it wrote is kept.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

type Engine struct {
	uow UnitOfWork
}

func NewEngine(uow UnitOfWork) *Engine {
	return &Engine{uow: uow}
}

type lockedLine struct {
	product  catalog.Product
	quantity int
}

// PlaceOrder converts the user's cart into a PENDING order and returns the
// order as committed, items and timestamps included.
func (e *Engine) PlaceOrder(ctx context.Context, userID, shippingAddress string) (*order.Order, error) {
	address := strings.TrimSpace(shippingAddress)
	if address == "" {
		return nil, ErrShippingAddressRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var placed *order.Order
	err := e.uow.Do(ctx, func(ctx context.Context, s Stores) error {
		exists, err := s.Users.Exists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return &UserNotFoundError{UserID: userID}
		}

		lines, err := s.Carts.Lines(ctx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return &EmptyCartError{UserID: userID}
		}

		// Rows are always locked in product id order so two placements
		// sharing products cannot deadlock.
		sorted := append([]cart.Line(nil), lines...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

		locked := make([]lockedLine, 0, len(sorted))
		for _, line := range sorted {
			p, err := s.Catalog.LockProduct(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if line.Quantity > p.StockQuantity {
				return &catalog.InsufficientStockError{
					ProductID: p.ID,
					Requested: line.Quantity,
					Available: p.StockQuantity,
				}
			}
			locked = append(locked, lockedLine{product: p, quantity: line.Quantity})
		}

		o := &order.Order{
			UserID:          userID,
			ShippingAddress: address,
			Status:          order.StatusPending,
			TotalAmount:     decimal.Zero,
			Items:           make([]order.Item, 0, len(locked)),
		}
		for _, l := range locked {
			it := order.Item{
				ProductID:   l.product.ID,
				ProductName: l.product.Name,
				Quantity:    l.quantity,
				UnitPrice:   l.product.Price,
			}
			o.Items = append(o.Items, it)
			o.TotalAmount = o.TotalAmount.Add(it.Subtotal())
		}
		if err := s.Orders.Create(ctx, o); err != nil {
			return err
		}

		for _, l := range locked {
			if err := s.Catalog.SetStock(ctx, l.product.ID, l.product.StockQuantity-l.quantity); err != nil {
				return err
			}
		}

		if err := s.Carts.ClearByUser(ctx, userID); err != nil {
			return err
		}

		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}
