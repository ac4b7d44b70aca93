package notify

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/orderflow/internal/domain/order"
)

// Log writes notifications to the logger instead of delivering them.
type Log struct {
	lg *zap.Logger
}

// NewLog creates a Log notifier. With a nil logger the request logger is used.
func NewLog(lg *zap.Logger) *Log {
	return &Log{lg: lg}
}

// Notify logs the notification.
func (l *Log) Notify(ctx context.Context, e order.Event, n order.Notification) error {
	lg := l.lg
	if lg == nil {
		lg = zctx.From(ctx)
	}
	msg := Compose(e, n)
	lg.Info("Order notification",
		zap.String("event", string(e)),
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("order_number", n.OrderNumber),
	)
	return nil
}
