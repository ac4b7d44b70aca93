package notify

import (
	"fmt"
	"time"

	"github.com/xenking/orderflow/internal/domain/order"
)

// EmailMessage is a rendered-on-delivery e-mail request.
type EmailMessage struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Data     map[string]any `json:"data"`
}

var subjects = map[order.Event]string{
	order.EventPlaced:    "We received your order %s",
	order.EventConfirmed: "Your order %s is confirmed",
	order.EventCancelled: "Your order %s was cancelled",
	order.EventDelivered: "Your order %s was delivered",
}

// Compose builds the e-mail for an order event.
func Compose(e order.Event, n order.Notification) EmailMessage {
	subject := "Update on your order %s"
	if s, ok := subjects[e]; ok {
		subject = s
	}
	return EmailMessage{
		To:       n.Email,
		Subject:  fmt.Sprintf(subject, n.OrderNumber),
		Template: "order_" + string(e),
		Data: map[string]any{
			"name":           n.Name,
			"orderNumber":    n.OrderNumber,
			"total":          n.Total.StringFixed(2),
			"at":             n.At.UTC().Format(time.RFC1123),
			"trackingNumber": n.TrackingNumber,
		},
	}
}
