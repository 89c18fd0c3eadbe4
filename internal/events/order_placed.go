package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

const (
	EventTypeOrderPlaced = "OrderPlaced"
	orderPlacedSchema    = "ecommerce.order.placed.v1"
)

type OrderPlacedPayload struct {
	OrderID         string            `json:"orderId"`
	UserID          string            `json:"userId"`
	TotalAmount     decimal.Decimal   `json:"totalAmount"`
	ShippingAddress string            `json:"shippingAddress"`
	Items           []OrderPlacedItem `json:"items"`
	PlacedAt        time.Time         `json:"placedAt"`
}

type OrderPlacedItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type OrderPlacedEvent = EventEnvelope[OrderPlacedPayload]

func newOrderPlacedPayload(o *order.Order) OrderPlacedPayload {
	payload := OrderPlacedPayload{
		OrderID:         o.ID,
		UserID:          o.UserID,
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		Items:           make([]OrderPlacedItem, 0, len(o.Items)),
		PlacedAt:        o.CreatedAt.UTC(),
	}
	for _, it := range o.Items {
		payload.Items = append(payload.Items, OrderPlacedItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return payload
}

func newOrderPlacedEvent(meta EventMeta, seq int64, producer string, payload OrderPlacedPayload, occurredAt time.Time) OrderPlacedEvent {
	return OrderPlacedEvent{
		EventName:     EventTypeOrderPlaced,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: meta.CorrelationID,
		CausationID:   meta.CausationID,
		Producer:      producer,
		PartitionKey:  payload.OrderID,
		Sequence:      &seq,
		OccurredAt:    occurredAt,
		Schema:        orderPlacedSchema,
		Payload:       payload,
	}
}
