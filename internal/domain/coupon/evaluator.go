package coupon

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Result is the outcome of evaluating a coupon against an order amount.
type Result struct {
	Valid    bool
	Discount decimal.Decimal
	Message  string
	// Reason is the sentinel describing why the coupon was rejected.
	Reason error
}

// Evaluator decides coupon eligibility and computes discounts. It has no side effects.
type Evaluator struct {
	now func() time.Time
}

// NewEvaluator creates an Evaluator using the wall clock.
func NewEvaluator() *Evaluator {
	return &Evaluator{now: time.Now}
}

// NewEvaluatorAt creates an Evaluator that reads time from now.
func NewEvaluatorAt(now func() time.Time) *Evaluator {
	return &Evaluator{now: now}
}

// Evaluate checks c against amount, short-circuiting on the first failed rule.
// A nil coupon is reported as an invalid code.
func (e *Evaluator) Evaluate(c *Coupon, amount decimal.Decimal) Result {
	if c == nil {
		return reject(ErrInvalidCoupon, "Invalid coupon code.")
	}
	if !c.IsActive {
		return reject(ErrCouponInactive, "Coupon is no longer active.")
	}

	now := e.now()
	if now.Before(c.ValidFrom) {
		return reject(ErrCouponNotYetValid, "Coupon is not yet valid.")
	}
	if now.After(c.ValidTo) {
		return reject(ErrCouponExpired, "Coupon has expired.")
	}
	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return reject(ErrCouponUsageLimitReached, "Coupon usage limit has been reached.")
	}
	if c.MinPurchaseAmount != nil && amount.LessThan(*c.MinPurchaseAmount) {
		return reject(ErrMinimumPurchase,
			fmt.Sprintf("Minimum purchase amount of %s is required.", c.MinPurchaseAmount.StringFixed(2)))
	}

	return Result{
		Valid:    true,
		Discount: Discount(c, amount),
		Message:  "Coupon applied.",
	}
}

// Discount computes the discount c grants on amount, ignoring eligibility rules.
// The result is capped at the coupon maximum and at amount, and never negative.
func Discount(c *Coupon, amount decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.Type {
	case TypePercentage:
		d = amount.Mul(c.Value).Div(hundred).Round(2)
	default:
		d = c.Value
	}

	if c.MaxDiscountAmount != nil {
		d = decimal.Min(d, *c.MaxDiscountAmount)
	}
	d = decimal.Min(d, amount)
	return floorAtZero(d)
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

func reject(reason error, msg string) Result {
	return Result{Discount: decimal.Zero, Message: msg, Reason: reason}
}
