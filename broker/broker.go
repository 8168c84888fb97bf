package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const exchangeType = "topic"

type Publisher interface {
	Publish(ctx context.Context, routingKey string, v any) error
}

type RabbitMQ struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func Dial(url string, exchange string, attempts int, log logrus.FieldLogger) (*RabbitMQ, error) {
	var (
		conn *amqp.Connection
		err  error
	)

	for i := 0; i < attempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		log.WithFields(logrus.Fields{
			"attempt": i + 1,
			"message": err,
		}).Warn("connecting to rabbitmq")
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, exchangeType, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}

	return &RabbitMQ{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
	}, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, routingKey string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.ch.PublishWithContext(ctx, r.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publishing %s: %w", routingKey, err)
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ch.Close(); err != nil {
		r.conn.Close()
		return err
	}
	return r.conn.Close()
}

// Discard is used when no broker is configured.
type Discard struct{}

func (Discard) Publish(ctx context.Context, routingKey string, v any) error {
	if _, err := json.Marshal(v); err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}
	return nil
}
