package queue

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one delivery's body. Consume ignores the returned error
// and acks every delivery itself once the handler returns (including
// failures), so a poisoned payload is never redelivered.
type Handler func(ctx context.Context, body []byte) error

// Consume runs handler over every delivery on queueName until ctx is
// cancelled or the delivery channel closes (broker disconnect). Acking is
// manual and unconditional: handler is responsible for its own manifest
// or trip bookkeeping, this loop only guarantees every delivery reaches
// handler exactly once per connection and is acked afterward.
func Consume(ctx context.Context, ch *amqp.Channel, queueName, consumerTag string, handler Handler) error {
	deliveries, err := ch.Consume(queueName, consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			_ = handler(ctx, d.Body)
			_ = d.Ack(false)
		}
	}
}
