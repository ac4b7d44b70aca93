package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCart_Subtotal(t *testing.T) {
	c := &Cart{
		Items: []Item{
			{ID: "i1", Quantity: 2, Price: decimal.RequireFromString("12.50")},
			{ID: "i2", Quantity: 1, Price: decimal.RequireFromString("99.99"), IsDeleted: true},
			{ID: "i3", Quantity: 3, Price: decimal.RequireFromString("1.10")},
		},
	}

	assert.True(t, decimal.RequireFromString("28.30").Equal(c.Subtotal()), "got %s", c.Subtotal())
	assert.Len(t, c.ActiveItems(), 2)
}

func TestCart_NilIsEmpty(t *testing.T) {
	var c *Cart
	assert.Empty(t, c.ActiveItems())
}
