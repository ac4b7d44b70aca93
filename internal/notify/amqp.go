package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	amqp "github.com/streadway/amqp"

	"github.com/xenking/orderflow/internal/domain/order"
)

// Event is the broker payload for an order notification.
type Event struct {
	Event          order.Event     `json:"event"`
	Email          string          `json:"email"`
	Name           string          `json:"name"`
	OrderNumber    string          `json:"orderNumber"`
	Total          decimal.Decimal `json:"total"`
	At             time.Time       `json:"at"`
	TrackingNumber string          `json:"trackingNumber,omitempty"`
}

// NewEvent wraps n as a broker payload.
func NewEvent(e order.Event, n order.Notification) Event {
	return Event{
		Event:          e,
		Email:          n.Email,
		Name:           n.Name,
		OrderNumber:    n.OrderNumber,
		Total:          n.Total,
		At:             n.At,
		TrackingNumber: n.TrackingNumber,
	}
}

// RoutingKey returns the topic routing key for e.
func RoutingKey(e order.Event) string {
	return "order." + string(e)
}

// AMQPPublisher publishes order events to a topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	exchange string

	mu sync.Mutex
	ch *amqp.Channel
}

// NewAMQPPublisher connects to the broker and declares the exchange.
func NewAMQPPublisher(cfg AMQPConfig) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "dial")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrapf(err, "declare exchange %q", cfg.Exchange)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: cfg.Exchange}, nil
}

// Notify publishes the event as persistent JSON.
func (p *AMQPPublisher) Notify(ctx context.Context, e order.Event, n order.Notification) error {
	body, err := json.Marshal(NewEvent(e, n))
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish(p.exchange, RoutingKey(e), false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		MessageId:    n.OrderNumber + ":" + string(e),
	})
	if err != nil {
		return errors.Wrapf(err, "publish %s", RoutingKey(e))
	}
	return nil
}

// Close closes the channel and the connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	chErr := p.ch.Close()
	connErr := p.conn.Close()
	if chErr != nil {
		return errors.Wrap(chErr, "close channel")
	}
	if connErr != nil {
		return errors.Wrap(connErr, "close connection")
	}
	return nil
}
