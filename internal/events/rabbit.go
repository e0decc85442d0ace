package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/set-night/invoicedesk/internal/config"
	"github.com/set-night/invoicedesk/internal/domain"
)

// confirmation is the broker's answer to one publish.
// *amqp.DeferredConfirmation satisfies it.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

type amqpChannel interface {
	publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error)
	Close() error
}

// confirmChannel is an amqp channel in confirm mode. Each publish gets its own
// deferred confirmation keyed by delivery tag.
type confirmChannel struct {
	*amqp.Channel
}

func (c confirmChannel) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error) {
	dc, err := c.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, errors.New("rabbitmq channel is not in confirm mode")
	}
	return dc, nil
}

// RabbitPublisher publishes events to a durable topic exchange in confirm
// mode. The routing key is the event type.
type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
	timeout  time.Duration
}

// DialRabbit connects to url, declares the exchange and enables publisher
// confirms.
func DialRabbit(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable rabbitmq confirms: %w", err)
	}

	p := newRabbitPublisher(confirmChannel{ch}, exchange)
	p.conn = conn
	return p, nil
}

func newRabbitPublisher(ch amqpChannel, exchange string) *RabbitPublisher {
	return &RabbitPublisher{
		ch:       ch,
		exchange: exchange,
		timeout:  config.PublishConfirmTimeout,
	}
}

// Publish sends one event and waits for the broker to confirm that delivery.
func (p *RabbitPublisher) Publish(ctx context.Context, evt domain.Event) error {
	body, err := marshalEnvelope(evt)
	if err != nil {
		return err
	}

	conf, err := p.ch.publish(ctx, p.exchange, string(evt.Type), amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    strconv.FormatInt(evt.ID, 10),
		Timestamp:    evt.CreatedAt,
		Type:         string(evt.Type),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish event %d: %w", evt.ID, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	acked, err := conf.WaitContext(waitCtx)
	switch {
	case err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("publish event %d: timeout waiting for rabbitmq ack", evt.ID)
	case err != nil:
		return fmt.Errorf("publish event %d: %w", evt.ID, err)
	case !acked:
		return fmt.Errorf("publish event %d: rabbitmq nack", evt.ID)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
