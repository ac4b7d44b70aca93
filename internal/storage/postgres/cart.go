package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/orderflow/internal/domain/cart"
)

const (
	getCartByUserSQL = `SELECT id, user_id FROM carts WHERE user_id = $1`

	listCartItemsSQL = `SELECT id, cart_id, product_id, quantity, price, is_deleted
		FROM cart_items WHERE cart_id = $1 ORDER BY created_at, id`

	markCartItemsDeletedSQL = `UPDATE cart_items SET is_deleted = TRUE WHERE id = ANY($1)`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	q querier
}

// GetByUser returns the user's cart with every item, deleted ones included.
func (r *CartRepository) GetByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	rows, err := r.q.Query(ctx, getCartByUserSQL, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "get cart of %q", userID)
	}

	c, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (cart.Cart, error) {
		var c cart.Cart
		err := row.Scan(&c.ID, &c.UserID)
		return c, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get cart of %q", userID)
	}

	rows, err = r.q.Query(ctx, listCartItemsSQL, c.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "list items of cart %q", c.ID)
	}
	c.Items, err = pgx.CollectRows(rows, pgx.RowToStructByPos[cart.Item])
	if err != nil {
		return nil, errors.Wrapf(err, "list items of cart %q", c.ID)
	}
	return &c, nil
}

// MarkItemsDeleted soft-deletes the given cart items.
func (r *CartRepository) MarkItemsDeleted(ctx context.Context, itemIDs []string) error {
	if len(itemIDs) == 0 {
		return nil
	}
	if _, err := r.q.Exec(ctx, markCartItemsDeletedSQL, itemIDs); err != nil {
		return errors.Wrap(err, "mark cart items deleted")
	}
	return nil
}
