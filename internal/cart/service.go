package cart

import (
	"context"
	"errors"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
)

// ProductReader is the catalog lookup the cart needs for stock checks.
type ProductReader interface {
	Get(ctx context.Context, productID string) (catalog.Product, error)
}

type Service struct {
	repo     Repository
	products ProductReader
}

func NewService(repo Repository, products ProductReader) *Service {
	return &Service{repo: repo, products: products}
}

func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	return s.repo.GetOrCreate(ctx, userID)
}

// AddItem increases the quantity of a product in the cart. The resulting
// quantity may not exceed the product's current stock.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ItemQuantity(ctx, c.ID, productID)
	if err != nil && !errors.Is(err, ErrItemNotFound) {
		return nil, err
	}
	want := existing + quantity
	if want > product.StockQuantity {
		return nil, &catalog.InsufficientStockError{
			ProductID: productID,
			Requested: want,
			Available: product.StockQuantity,
		}
	}

	if err := s.repo.SetItem(ctx, c.ID, productID, want); err != nil {
		return nil, err
	}
	return s.repo.GetOrCreate(ctx, userID)
}

// UpdateItem sets the quantity of a product already in the cart. A quantity
// of zero or less removes the line.
func (s *Service) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	c, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.ItemQuantity(ctx, c.ID, productID); err != nil {
		return nil, err
	}

	if quantity <= 0 {
		if err := s.repo.DeleteItem(ctx, c.ID, productID); err != nil {
			return nil, err
		}
		return s.repo.GetOrCreate(ctx, userID)
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > product.StockQuantity {
		return nil, &catalog.InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: product.StockQuantity,
		}
	}
	if err := s.repo.SetItem(ctx, c.ID, productID, quantity); err != nil {
		return nil, err
	}
	return s.repo.GetOrCreate(ctx, userID)
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	c, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, c.ID, productID); err != nil {
		return nil, err
	}
	return s.repo.GetOrCreate(ctx, userID)
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.repo.ClearByUser(ctx, userID)
}
