package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestEvaluator_Evaluate(t *testing.T) {
	fixedNow := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	active := func(mut func(c *Coupon)) *Coupon {
		c := &Coupon{
			ID:        "c1",
			Code:      "CODE",
			Type:      TypeFlat,
			Value:     decimal.NewFromInt(10),
			ValidFrom: fixedNow.Add(-24 * time.Hour),
			ValidTo:   fixedNow.Add(24 * time.Hour),
			IsActive:  true,
		}
		if mut != nil {
			mut(c)
		}
		return c
	}

	tests := []struct {
		name         string
		coupon       *Coupon
		amount       string
		wantDiscount string
		wantReason   error
		wantMessage  string
	}{
		{
			name:        "nil coupon",
			amount:      "100",
			wantReason:  ErrInvalidCoupon,
			wantMessage: "Invalid coupon code.",
		},
		{
			name:        "inactive",
			coupon:      active(func(c *Coupon) { c.IsActive = false }),
			amount:      "100",
			wantReason:  ErrCouponInactive,
			wantMessage: "Coupon is no longer active.",
		},
		{
			name:        "not yet valid",
			coupon:      active(func(c *Coupon) { c.ValidFrom = fixedNow.Add(time.Hour) }),
			amount:      "100",
			wantReason:  ErrCouponNotYetValid,
			wantMessage: "Coupon is not yet valid.",
		},
		{
			name:        "expired",
			coupon:      active(func(c *Coupon) { c.ValidTo = fixedNow.Add(-time.Hour) }),
			amount:      "100",
			wantReason:  ErrCouponExpired,
			wantMessage: "Coupon has expired.",
		},
		{
			name: "inactive checked before window",
			coupon: active(func(c *Coupon) {
				c.IsActive = false
				c.ValidTo = fixedNow.Add(-time.Hour)
			}),
			amount:     "100",
			wantReason: ErrCouponInactive,
		},
		{
			name: "usage limit reached",
			coupon: active(func(c *Coupon) {
				c.UsageLimit = 5
				c.UsedCount = 5
			}),
			amount:      "100",
			wantReason:  ErrCouponUsageLimitReached,
			wantMessage: "Coupon usage limit has been reached.",
		},
		{
			name: "unlimited usage",
			coupon: active(func(c *Coupon) {
				c.UsageLimit = 0
				c.UsedCount = 9999
			}),
			amount:       "100",
			wantDiscount: "10",
		},
		{
			name:        "below minimum purchase",
			coupon:      active(func(c *Coupon) { c.MinPurchaseAmount = ptr("50") }),
			amount:      "49.99",
			wantReason:  ErrMinimumPurchase,
			wantMessage: "Minimum purchase amount of 50.00 is required.",
		},
		{
			name:         "exactly minimum purchase",
			coupon:       active(func(c *Coupon) { c.MinPurchaseAmount = ptr("50") }),
			amount:       "50",
			wantDiscount: "10",
		},
		{
			name: "percentage capped by max discount",
			coupon: active(func(c *Coupon) {
				c.Type = TypePercentage
				c.Value = decimal.NewFromInt(50)
				c.MaxDiscountAmount = ptr("100")
			}),
			amount:       "1000",
			wantDiscount: "100",
		},
		{
			name: "percentage rounds to cents",
			coupon: active(func(c *Coupon) {
				c.Type = TypePercentage
				c.Value = decimal.NewFromInt(15)
			}),
			amount:       "33.33",
			wantDiscount: "5",
		},
		{
			name:         "flat capped at order amount",
			coupon:       active(func(c *Coupon) { c.Value = decimal.NewFromInt(500) }),
			amount:       "300",
			wantDiscount: "300",
		},
		{
			name: "flat capped by max discount",
			coupon: active(func(c *Coupon) {
				c.Value = decimal.NewFromInt(40)
				c.MaxDiscountAmount = ptr("25")
			}),
			amount:       "300",
			wantDiscount: "25",
		},
		{
			name:         "negative flat value floors at zero",
			coupon:       active(func(c *Coupon) { c.Value = decimal.NewFromInt(-5) }),
			amount:       "300",
			wantDiscount: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluatorAt(func() time.Time { return fixedNow })

			got := e.Evaluate(tt.coupon, decimal.RequireFromString(tt.amount))

			if tt.wantReason != nil {
				require.False(t, got.Valid)
				assert.ErrorIs(t, got.Reason, tt.wantReason)
				assert.True(t, got.Discount.IsZero())
				if tt.wantMessage != "" {
					assert.Equal(t, tt.wantMessage, got.Message)
				}
				return
			}

			require.True(t, got.Valid, got.Message)
			assert.NoError(t, got.Reason)
			want := decimal.RequireFromString(tt.wantDiscount)
			assert.True(t, want.Equal(got.Discount), "expected discount %s, got %s", want, got.Discount)
		})
	}
}

func TestDiscount_NeverExceedsAmount(t *testing.T) {
	for _, amount := range []string{"0", "0.01", "9.99", "10", "10.01", "250"} {
		c := &Coupon{Type: TypeFlat, Value: decimal.NewFromInt(10)}
		a := decimal.RequireFromString(amount)
		d := Discount(c, a)
		assert.True(t, d.LessThanOrEqual(a), "amount %s discount %s", a, d)
		assert.False(t, d.IsNegative())
	}
}
