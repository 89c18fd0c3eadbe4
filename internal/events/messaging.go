package events

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange               = "ecommerce.events"
	OrderPlacedRoutingKey        = "order.placed.v1"
	OrderStatusChangedRoutingKey = "order.status-changed.v1"
)

type exchangeDeclarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
}

func declareEventsExchange(ch exchangeDeclarer) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
}
