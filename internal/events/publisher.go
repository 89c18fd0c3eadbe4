package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/order"
)

// OrderEventPublisher is what the HTTP layer publishes through after a commit.
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, meta EventMeta, o *order.Order) error
	PublishOrderStatusChanged(ctx context.Context, meta EventMeta, o *order.Order, change order.StatusChange) error
}

type SequenceSource interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	ch                 channel
	seq                SequenceSource
	producerIdentifier string
	now                func() time.Time
}

type PublisherOptions struct {
	Producer string
}

func NewPublisher(conn *amqp.Connection, seq SequenceSource, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	return newPublisher(ch, seq, opts), nil
}

func newPublisher(ch channel, seq SequenceSource, opts PublisherOptions) *Publisher {
	producer := opts.Producer
	if producer == "" {
		producer = "storefront-service"
	}
	return &Publisher{
		ch:                 ch,
		seq:                seq,
		producerIdentifier: producer,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, meta EventMeta, o *order.Order) error {
	seq, err := p.seq.NextSequence(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := newOrderPlacedEvent(meta, seq, p.producerIdentifier, newOrderPlacedPayload(o), p.now())
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal OrderPlaced envelope: %w", err)
	}
	return p.publishJSON(ctx, OrderPlacedRoutingKey, env.EventID, body)
}

func (p *Publisher) PublishOrderStatusChanged(ctx context.Context, meta EventMeta, o *order.Order, change order.StatusChange) error {
	seq, err := p.seq.NextSequence(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := newOrderStatusChangedEvent(meta, seq, p.producerIdentifier, o, change, p.now())
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal OrderStatusChanged envelope: %w", err)
	}
	return p.publishJSON(ctx, OrderStatusChangedRoutingKey, env.EventID, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey, messageID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    p.now(),
			Body:         body,
		},
	)
}

// NopPublisher drops every event. It is used when publishing is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, EventMeta, *order.Order) error {
	return nil
}

func (NopPublisher) PublishOrderStatusChanged(context.Context, EventMeta, *order.Order, order.StatusChange) error {
	return nil
}
