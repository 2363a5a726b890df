// Package rabbitmq forwards order lifecycle events to a topic exchange.
package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/observability"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "sportsphere.orders"
	ExchangeType    = "topic"

	dialAttempts = 5
	dialBackoff  = 2 * time.Second
)

// SetupConn dials url, retrying while the broker starts, and declares the
// durable topic exchange.
func SetupConn(ctx context.Context, url, exchange string, log observability.Logger) (*amqp.Connection, *amqp.Channel, error) {
	if log == nil {
		log = observability.NopLogger()
	}
	if exchange == "" {
		exchange = DefaultExchange
	}

	var conn *amqp.Connection
	var err error
	for i := 0; i < dialAttempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		log.Warn("rabbitmq_dial_failed",
			observability.F("attempt", i+1),
			observability.F("error", err),
		)
		if i == dialAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, nil, fmt.Errorf("rabbitmq: connect: %w", ctx.Err())
		case <-time.After(dialBackoff):
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq: connect: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,     // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq: declare exchange: %w", err)
	}
	return conn, ch, nil
}
