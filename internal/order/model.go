package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

var statuses = []Status{StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled}

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, error) {
	want := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range statuses {
		if st == want {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type Item struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

func (it Item) Subtotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress string          `json:"shippingAddress"`
	Status          Status          `json:"status"`
	Items           []Item          `json:"items"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// StatusChange is one row of an order's status history.
type StatusChange struct {
	OrderID   string    `json:"orderId"`
	From      Status    `json:"fromStatus"`
	To        Status    `json:"toStatus"`
	ChangedAt time.Time `json:"changedAt"`
}
