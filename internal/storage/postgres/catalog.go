package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/orderflow/internal/domain/product"
)

const (
	getProductByIDSQL = `SELECT id, seller_id, category_id, name, price, discount_price,
		stock_quantity, is_active, is_visible
		FROM products WHERE id = $1`

	updateProductStockSQL = `UPDATE products SET stock_quantity = $2 WHERE id = $1`

	getInventoryByProductSQL = `SELECT id, product_id, stock_quantity, reserved_quantity, low_stock_threshold
		FROM inventory WHERE product_id = $1`

	updateInventoryStockSQL = `UPDATE inventory SET stock_quantity = $2 WHERE id = $1`
)

var (
	_ product.Repository          = (*ProductRepository)(nil)
	_ product.InventoryRepository = (*InventoryRepository)(nil)
)

// ProductRepository implements product.Repository backed by PostgreSQL.
// With lock set, reads take a row lock for the rest of the transaction.
type ProductRepository struct {
	q    querier
	lock bool
}

// GetByID returns the product or nil when it does not exist.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.q.Query(ctx, forUpdate(getProductByIDSQL, r.lock), id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[product.Product])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	return &p, nil
}

// UpdateStock sets the product's stock counter.
func (r *ProductRepository) UpdateStock(ctx context.Context, id string, qty int) error {
	tag, err := r.q.Exec(ctx, updateProductStockSQL, id, qty)
	if err != nil {
		return errors.Wrapf(err, "update stock of product %q", id)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(product.ErrNotFound, "product %q", id)
	}
	return nil
}

// InventoryRepository implements product.InventoryRepository backed by PostgreSQL.
type InventoryRepository struct {
	q    querier
	lock bool
}

// GetByProductID returns the product's inventory row or nil when it has none.
func (r *InventoryRepository) GetByProductID(ctx context.Context, productID string) (*product.Inventory, error) {
	rows, err := r.q.Query(ctx, forUpdate(getInventoryByProductSQL, r.lock), productID)
	if err != nil {
		return nil, errors.Wrapf(err, "get inventory of %q", productID)
	}

	inv, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[product.Inventory])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get inventory of %q", productID)
	}
	return &inv, nil
}

// UpdateStock sets the inventory row's stock quantity.
func (r *InventoryRepository) UpdateStock(ctx context.Context, id string, qty int) error {
	tag, err := r.q.Exec(ctx, updateInventoryStockSQL, id, qty)
	if err != nil {
		return errors.Wrapf(err, "update inventory %q", id)
	}
	if tag.RowsAffected() == 0 {
		return errors.Errorf("inventory %q not found", id)
	}
	return nil
}
