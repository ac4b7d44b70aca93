package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported coupon discount strategies.
type Type string

const (
	// TypePercentage discounts a percentage of the order amount.
	TypePercentage Type = "percentage"
	// TypeFlat discounts a fixed monetary amount.
	TypeFlat Type = "flat"
)

// Valid reports whether t is a known coupon type.
func (t Type) Valid() bool {
	return t == TypePercentage || t == TypeFlat
}

var (
	// ErrInvalidCoupon is returned when a coupon code does not exist.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponInactive is returned when a coupon has been deactivated.
	ErrCouponInactive = errors.New("coupon inactive")
	// ErrCouponNotYetValid is returned before a coupon's validity window opens.
	ErrCouponNotYetValid = errors.New("coupon not yet valid")
	// ErrCouponExpired is returned after a coupon's validity window closes.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrCouponUsageLimitReached is returned when a coupon has exhausted its allowed uses.
	ErrCouponUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrMinimumPurchase is returned when the order amount is below the coupon minimum.
	ErrMinimumPurchase = errors.New("minimum purchase not met")
)

// Coupon is a globally unique discount code.
type Coupon struct {
	ID                string
	Code              string
	Type              Type
	Value             decimal.Decimal
	MinPurchaseAmount *decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	ValidFrom         time.Time
	ValidTo           time.Time
	// UsageLimit of zero means unlimited.
	UsageLimit int
	UsedCount  int
	IsActive   bool
}

// Repository provides lookup and usage accounting of coupons.
type Repository interface {
	// GetByCode returns nil, nil when no coupon has the given code.
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	IncrementUsage(ctx context.Context, id string) error
}
