package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	CategoryID    *string         `json:"categoryId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Validate checks the fields a caller may set on create or update.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if p.StockQuantity < 0 {
		return fmt.Errorf("%w: stock quantity must not be negative", ErrInvalidProduct)
	}
	return nil
}

func (p Product) InStock() bool {
	return p.StockQuantity > 0
}
