package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RoutingKeyExpenseCreated is the routing key expense events are published under.
const RoutingKeyExpenseCreated = "expense.created"

// ErrRelayClosed is returned by Run when the broker closes the delivery channel.
var ErrRelayClosed = errors.New("rabbitmq delivery channel closed")

// RabbitRelay publishes expense events to a topic exchange and feeds the
// events it consumes back into a local Broker, so subscribers connected to
// any instance see changes recorded on every other one.
//
// Local subscribers never depend on RabbitMQ alone: when a publish fails or
// Run has stopped consuming, events go straight to the local Broker.
type RabbitRelay struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	queue    string
	broker   *Broker

	publish func(ctx context.Context, body []byte) error
	stopped atomic.Bool
}

// NewRabbitRelay dials url, declares the exchange and an exclusive queue
// bound to expense events.
func NewRabbitRelay(url, exchange string, broker *Broker) (*RabbitRelay, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	// Each instance gets its own server-named queue, deleted when it disconnects.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "expense.*", exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}
	r := &RabbitRelay{conn: conn, ch: ch, exchange: exchange, queue: q.Name, broker: broker}
	r.publish = r.publishToExchange
	return r, nil
}

// ExpenseRecorded publishes ev. While Run is consuming, local subscribers
// are signalled when the event comes back through it; otherwise, or when
// the publish fails, they are signalled directly. A publish failure is
// still returned since other instances miss the event.
func (r *RabbitRelay) ExpenseRecorded(ctx context.Context, ev Event) error {
	body, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	err = r.publish(ctx, body)
	if err != nil || r.stopped.Load() {
		_ = r.broker.ExpenseRecorded(ctx, ev)
	}
	if err != nil {
		return fmt.Errorf("publish expense event: %w", err)
	}
	return nil
}

func (r *RabbitRelay) publishToExchange(ctx context.Context, body []byte) error {
	return r.ch.PublishWithContext(ctx, r.exchange, RoutingKeyExpenseCreated, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Run consumes events until ctx is done or the channel closes, in which
// case it returns ErrRelayClosed. Once Run returns, ExpenseRecorded
// delivers locally.
func (r *RabbitRelay) Run(ctx context.Context) error {
	defer r.stopped.Store(true)

	msgs, err := r.ch.ConsumeWithContext(ctx, r.queue, "", true, true, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return ErrRelayClosed
			}
			ev, err := decodeEvent(d.Body)
			if err != nil {
				slog.Warn("Dropping malformed expense event", "routing_key", d.RoutingKey, "error", err)
				continue
			}
			_ = r.broker.ExpenseRecorded(ctx, ev)
		}
	}
}

// Close tears down the channel and connection.
func (r *RabbitRelay) Close() error {
	if r.ch != nil {
		_ = r.ch.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func encodeEvent(ev Event) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return body, nil
}

func decodeEvent(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.ExpenseID == "" || len(ev.Participants) == 0 {
		return Event{}, fmt.Errorf("decode event: missing expense id or participants")
	}
	return ev, nil
}
