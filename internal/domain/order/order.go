package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrDuplicateOrderNumber is reported by storage when an order number is already taken.
var ErrDuplicateOrderNumber = errors.New("duplicate order number")

// Status is the fulfillment state of an order.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusConfirmed Status = "Confirmed"
	StatusShipped   Status = "Shipped"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

var statuses = []Status{StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled}

// ParseStatus resolves s case-insensitively to a known status.
func ParseStatus(s string) (Status, bool) {
	s = strings.TrimSpace(s)
	for _, st := range statuses {
		if strings.EqualFold(string(st), s) {
			return st, true
		}
	}
	return "", false
}

// Order is a placed order. Only status, tracking and the fulfillment
// timestamps change after creation.
type Order struct {
	ID             string
	OrderNumber    string
	UserID         string
	AddressID      string
	Status         Status
	SubTotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
	CouponID       *string
	TrackingNumber *string
	ShippedDate    *time.Time
	DeliveredDate  *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	IsDeleted      bool
	Items          []Item
}

// Item is an order line with price frozen at placement time.
type Item struct {
	ID             string
	OrderID        string
	ProductID      string
	SellerID       string
	ProductName    string
	Quantity       int
	UnitPrice      decimal.Decimal
	TotalPrice     decimal.Decimal
	DiscountAmount *decimal.Decimal
	IsDeleted      bool
}

// SellerItems returns the non-deleted items sold by sellerID.
func (o *Order) SellerItems(sellerID string) []Item {
	var out []Item
	for _, it := range o.Items {
		if !it.IsDeleted && it.SellerID == sellerID {
			out = append(out, it)
		}
	}
	return out
}

// HasSeller reports whether any non-deleted item belongs to sellerID.
func (o *Order) HasSeller(sellerID string) bool {
	return len(o.SellerItems(sellerID)) > 0
}

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

// PaymentMethod is how a payment is made.
type PaymentMethod string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentOther   PaymentMethod = "Other"
)

// Payment is the payment record created alongside an order.
type Payment struct {
	ID            string
	OrderID       string
	Amount        decimal.Decimal
	Status        PaymentStatus
	Method        PaymentMethod
	TransactionID string
	CreatedAt     time.Time
}

// Filter narrows order listings. Zero values are ignored.
type Filter struct {
	UserID   string
	SellerID string
	Status   Status
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

// Repository defines persistence operations for orders.
type Repository interface {
	ExistsOrderNumber(ctx context.Context, number string) (bool, error)
	// Add persists the order together with its items. A taken order number
	// is reported as ErrDuplicateOrderNumber.
	Add(ctx context.Context, o *Order) error
	// GetByIDWithDetails returns the order with its items, or nil, nil.
	GetByIDWithDetails(ctx context.Context, id string) (*Order, error)
	// UpdateFulfillment writes status, tracking number and fulfillment timestamps.
	UpdateFulfillment(ctx context.Context, o *Order) error
	// List returns non-deleted orders with their items, newest first.
	List(ctx context.Context, f Filter) ([]Order, error)
	// IDsBySeller returns ids of orders holding at least one non-deleted item of sellerID.
	IDsBySeller(ctx context.Context, sellerID string) ([]string, error)
	// ListByIDs returns non-deleted orders among ids created in [from, to).
	ListByIDs(ctx context.Context, ids []string, from, to time.Time) ([]Order, error)
}

// PaymentRepository persists payments.
type PaymentRepository interface {
	Add(ctx context.Context, p *Payment) error
}
