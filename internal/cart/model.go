package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a cart line joined with the product's current name and price.
type Item struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	AddedAt     time.Time       `json:"addedAt"`
}

type Cart struct {
	ID          string          `json:"cartId"`
	UserID      string          `json:"userId"`
	Items       []Item          `json:"items"`
	TotalItems  int             `json:"totalItems"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Line is the bare (product, quantity) pair read by checkout.
type Line struct {
	ProductID string
	Quantity  int
}

func (c *Cart) recalculate() {
	c.TotalItems = 0
	c.TotalAmount = decimal.Zero
	for i := range c.Items {
		it := &c.Items[i]
		it.Subtotal = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		c.TotalItems += it.Quantity
		c.TotalAmount = c.TotalAmount.Add(it.Subtotal)
	}
}
