package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

// Cart is the per-user shopping cart. It is created lazily and never removed.
type Cart struct {
	ID     string
	UserID string
	Items  []Item
}

// Item is a cart line. Price is the unit price snapshot taken when the item was added.
type Item struct {
	ID        string
	CartID    string
	ProductID string
	Quantity  int
	Price     decimal.Decimal
	IsDeleted bool
}

// ActiveItems returns the non-deleted items in insertion order.
func (c *Cart) ActiveItems() []Item {
	if c == nil {
		return nil
	}
	active := make([]Item, 0, len(c.Items))
	for _, it := range c.Items {
		if !it.IsDeleted {
			active = append(active, it)
		}
	}
	return active
}

// Subtotal sums price * quantity over the non-deleted items using the cart's price snapshot.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.ActiveItems() {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

// Repository reads carts and soft-deletes their items.
type Repository interface {
	// GetByUser returns the user's cart with all of its items, or nil, nil when none exists.
	GetByUser(ctx context.Context, userID string) (*Cart, error)
	MarkItemsDeleted(ctx context.Context, itemIDs []string) error
}
