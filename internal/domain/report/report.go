package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/orderflow/internal/domain/order"
)

const (
	defaultWindow = 30 * 24 * time.Hour
	topProducts   = 10
)

// Range is a half-open UTC interval [From, To).
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NormalizeRange fills in missing bounds. A missing upper bound becomes one
// day past now; a missing or inverted lower bound becomes thirty days before
// the upper bound.
func NormalizeRange(from, to *time.Time, now time.Time) Range {
	r := Range{To: now.UTC().Add(24 * time.Hour)}
	if to != nil {
		r.To = to.UTC()
	}
	r.From = r.To.Add(-defaultWindow)
	if from != nil && from.Before(r.To) {
		r.From = from.UTC()
	}
	return r
}

// DailyPoint is one calendar day of a revenue series.
type DailyPoint struct {
	Date    string          `json:"date"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// StatusCount is one bucket of the order status histogram.
type StatusCount struct {
	Status order.Status `json:"status"`
	Count  int          `json:"count"`
}

// TopProduct ranks a product by units sold.
type TopProduct struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Units       int             `json:"units"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// AdminReport summarizes every order in a range.
type AdminReport struct {
	Range
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TotalOrders  int             `json:"totalOrders"`
	Daily        []DailyPoint    `json:"daily"`
	ByStatus     []StatusCount   `json:"byStatus"`
}

// SellerReport summarizes one seller's slice of the orders in a range.
type SellerReport struct {
	Range
	SellerID     string          `json:"sellerId"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	TotalOrders  int             `json:"totalOrders"`
	UnitsSold    int             `json:"unitsSold"`
	Daily        []DailyPoint    `json:"daily"`
	TopProducts  []TopProduct    `json:"topProducts"`
}

// Source reads historical orders.
type Source interface {
	List(ctx context.Context, f order.Filter) ([]order.Order, error)
	IDsBySeller(ctx context.Context, sellerID string) ([]string, error)
	ListByIDs(ctx context.Context, ids []string, from, to time.Time) ([]order.Order, error)
}

// Cache stores finished reports. Misses report false without error.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
}
