package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

const (
	EventTypeOrderStatusChanged = "OrderStatusChanged"
	orderStatusChangedSchema    = "ecommerce.order.status-changed.v1"
)

type OrderStatusChangedPayload struct {
	OrderID    string    `json:"orderId"`
	UserID     string    `json:"userId"`
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	ChangedAt  time.Time `json:"changedAt"`
}

type OrderStatusChangedEvent = EventEnvelope[OrderStatusChangedPayload]

func newOrderStatusChangedEvent(meta EventMeta, seq int64, producer string, o *order.Order, change order.StatusChange, occurredAt time.Time) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		EventName:     EventTypeOrderStatusChanged,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: meta.CorrelationID,
		CausationID:   meta.CausationID,
		Producer:      producer,
		PartitionKey:  o.ID,
		Sequence:      &seq,
		OccurredAt:    occurredAt,
		Schema:        orderStatusChangedSchema,
		Payload: OrderStatusChangedPayload{
			OrderID:    o.ID,
			UserID:     o.UserID,
			FromStatus: string(change.From),
			ToStatus:   string(change.To),
			ChangedAt:  change.ChangedAt.UTC(),
		},
	}
}
