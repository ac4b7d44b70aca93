package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Event names an order lifecycle notification.
type Event string

const (
	EventPlaced    Event = "placed"
	EventConfirmed Event = "confirmed"
	EventCancelled Event = "cancelled"
	EventDelivered Event = "delivered"
)

// Notification carries what a customer message about an order needs.
type Notification struct {
	Email          string
	Name           string
	OrderNumber    string
	Total          decimal.Decimal
	At             time.Time
	TrackingNumber string
}

// Notifier delivers order notifications. Callers treat every error as non-fatal.
type Notifier interface {
	OrderPlaced(ctx context.Context, n Notification) error
	OrderConfirmed(ctx context.Context, n Notification) error
	OrderCancelled(ctx context.Context, n Notification) error
	OrderDelivered(ctx context.Context, n Notification) error
}

// Send dispatches n to the Notifier method matching e.
func Send(ctx context.Context, nf Notifier, e Event, n Notification) error {
	switch e {
	case EventPlaced:
		return nf.OrderPlaced(ctx, n)
	case EventConfirmed:
		return nf.OrderConfirmed(ctx, n)
	case EventCancelled:
		return nf.OrderCancelled(ctx, n)
	case EventDelivered:
		return nf.OrderDelivered(ctx, n)
	default:
		return nil
	}
}

// statusEvent maps a status change to the event customers hear about.
func statusEvent(s Status) (Event, bool) {
	switch s {
	case StatusConfirmed:
		return EventConfirmed, true
	case StatusCancelled:
		return EventCancelled, true
	case StatusDelivered:
		return EventDelivered, true
	default:
		return "", false
	}
}
