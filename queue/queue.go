// Package queue wraps the two durable AMQP 0-9-1 queues that drive the
// trainer and predictor consumers: model-train (prefetch 1) and
// predict.trip (prefetch 4). Dial retries the initial connection with
// exponential backoff. A connection lost mid-session is not redialed:
// Consume returns when the delivery channel closes.
package queue

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	// QueueModelTrain carries {modelId?, vehicleId?, version?} JSON payloads.
	QueueModelTrain = "model-train"
	// QueuePredictTrip carries {tripId, vehicleId, version} JSON payloads.
	QueuePredictTrip = "predict.trip"
)

// Conn wraps a broker connection and channel, opened by Dial's retry loop
// on startup. A mid-session drop closes the delivery channel and ends
// Consume; neither consumer command calls Dial again after that.
type Conn struct {
	Connection *amqp.Connection
	Channel    *amqp.Channel
}

// Close tears down the channel then the connection.
func (c *Conn) Close() error {
	if c.Channel != nil {
		_ = c.Channel.Close()
	}
	if c.Connection != nil {
		return c.Connection.Close()
	}
	return nil
}

// Dial connects to url, retrying with exponential backoff until ctx is
// done. log receives a line per retry so operators can see a flapping
// broker rather than a silent hang.
func Dial(ctx context.Context, url string, log *logrus.Logger) (*Conn, error) {
	var conn *amqp.Connection
	op := func() error {
		c, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warn("broker dial failed, retrying")
			return err
		}
		conn = c
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 0 // retry until ctx cancellation
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Conn{Connection: conn, Channel: ch}, nil
}

// DeclareDurable declares name as a durable, non-auto-deleted queue and
// sets the channel's prefetch count, the two knobs that bound how much
// in-flight work one consumer instance carries.
func DeclareDurable(ch *amqp.Channel, name string, prefetch int) error {
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return err
	}
	return ch.Qos(prefetch, 0, false)
}

// Publish sends body to name as a persistent message, used by the
// operator CLI to enqueue train/predict jobs.
func Publish(ctx context.Context, ch *amqp.Channel, name string, body []byte) error {
	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return ch.PublishWithContext(publishCtx, "", name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}
