package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Ledger reads and deducts stock, preferring the inventory row over the
// product's own counter when one exists.
type Ledger struct {
	products  Repository
	inventory InventoryRepository
}

// NewLedger binds a Ledger to the given stores. Pass transaction-scoped
// stores to make deductions part of the surrounding transaction.
func NewLedger(products Repository, inventory InventoryRepository) *Ledger {
	return &Ledger{products: products, inventory: inventory}
}

// Available returns the quantity that can still be sold for productID.
func (l *Ledger) Available(ctx context.Context, productID string) (int, error) {
	inv, err := l.inventory.GetByProductID(ctx, productID)
	if err != nil {
		return 0, errors.Wrap(err, "get inventory")
	}
	if inv != nil {
		return inv.Available(), nil
	}

	p, err := l.products.GetByID(ctx, productID)
	if err != nil {
		return 0, errors.Wrap(err, "get product")
	}
	if p == nil {
		return 0, errors.Wrapf(ErrNotFound, "product %s", productID)
	}
	return max(0, p.StockQuantity), nil
}

// Deduct removes qty units of stock and returns the new stock quantity.
// With an inventory row the new value is mirrored onto the product.
func (l *Ledger) Deduct(ctx context.Context, productID string, qty int) (int, error) {
	if qty < 0 {
		return 0, errors.Errorf("negative deduction %d", qty)
	}

	inv, err := l.inventory.GetByProductID(ctx, productID)
	if err != nil {
		return 0, errors.Wrap(err, "get inventory")
	}

	if inv == nil {
		p, err := l.products.GetByID(ctx, productID)
		if err != nil {
			return 0, errors.Wrap(err, "get product")
		}
		if p == nil {
			return 0, errors.Wrapf(ErrNotFound, "product %s", productID)
		}
		left := max(0, p.StockQuantity-qty)
		if err := l.products.UpdateStock(ctx, productID, left); err != nil {
			return 0, errors.Wrap(err, "update product stock")
		}
		return left, nil
	}

	left := max(0, inv.StockQuantity-qty)
	if err := l.inventory.UpdateStock(ctx, inv.ID, left); err != nil {
		return 0, errors.Wrap(err, "update inventory stock")
	}
	if err := l.products.UpdateStock(ctx, productID, left); err != nil {
		return 0, errors.Wrap(err, "mirror product stock")
	}

	if left <= inv.LowStockThreshold {
		zctx.From(ctx).Warn("low stock",
			zap.String("product_id", productID),
			zap.Int("stock", left),
			zap.Int("threshold", inv.LowStockThreshold),
		)
	}
	return left, nil
}
