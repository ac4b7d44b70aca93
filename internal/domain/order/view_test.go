package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSellerView(t *testing.T) {
	couponID := "c1"
	o := &Order{
		ID:             "o1",
		SubTotal:       decimal.RequireFromString("170"),
		DiscountAmount: decimal.RequireFromString("10"),
		TaxAmount:      decimal.Zero,
		TotalAmount:    decimal.RequireFromString("160"),
		CouponID:       &couponID,
		Items: []Item{
			{ID: "i1", SellerID: "A", Quantity: 2, UnitPrice: decimal.RequireFromString("50"), TotalPrice: decimal.RequireFromString("100")},
			{ID: "i2", SellerID: "B", Quantity: 1, UnitPrice: decimal.RequireFromString("20"), TotalPrice: decimal.RequireFromString("20")},
			{ID: "i3", SellerID: "A", Quantity: 1, UnitPrice: decimal.RequireFromString("50"), TotalPrice: decimal.RequireFromString("50")},
			{ID: "i4", SellerID: "A", Quantity: 1, UnitPrice: decimal.RequireFromString("7"), TotalPrice: decimal.RequireFromString("7"), IsDeleted: true},
		},
	}

	v := NewSellerView(o, "A")
	require.Len(t, v.Items, 2)
	assert.Equal(t, "i1", v.Items[0].ID)
	assert.Equal(t, "i3", v.Items[1].ID)
	assert.True(t, decimal.RequireFromString("150").Equal(v.SubTotal))
	assert.True(t, decimal.RequireFromString("150").Equal(v.TotalAmount))
	assert.Nil(t, v.DiscountAmount)
	assert.Nil(t, v.TaxAmount)
	assert.Nil(t, v.CouponID)

	full := NewView(o)
	assert.Len(t, full.Items, 3)
	require.NotNil(t, full.DiscountAmount)
	assert.True(t, decimal.RequireFromString("10").Equal(*full.DiscountAmount))
	assert.True(t, decimal.RequireFromString("160").Equal(full.TotalAmount))
}

func TestNewView_NoCouponHidesDiscount(t *testing.T) {
	v := NewView(&Order{SubTotal: decimal.NewFromInt(5), TotalAmount: decimal.NewFromInt(5)})
	assert.Nil(t, v.DiscountAmount)
	require.NotNil(t, v.TaxAmount)
	assert.True(t, v.TaxAmount.IsZero())
}

func TestParseStatus(t *testing.T) {
	for in, want := range map[string]Status{
		"pending":   StatusPending,
		" Shipped ": StatusShipped,
		"DELIVERED": StatusDelivered,
		"Cancelled": StatusCancelled,
		"confirmed": StatusConfirmed,
	} {
		got, ok := ParseStatus(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}

	_, ok := ParseStatus("Returned")
	assert.False(t, ok)
}

func TestNewNumber(t *testing.T) {
	assert.Regexp(t, `^ORD-20250102-\d{6}$`, NewNumber(time.Date(2025, 1, 2, 23, 0, 0, 0, time.UTC)))
}
