package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category already exists")
	ErrInvalidProduct   = errors.New("invalid product")
	ErrInvalidCategory  = errors.New("invalid category")
	// ErrProductInUse is returned when deleting a product that order history still references.
	ErrProductInUse = errors.New("product is referenced by existing orders")
)

// ProductNotFoundError reports a product id that has no row.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InsufficientStockError reports a requested quantity above the available stock.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}
