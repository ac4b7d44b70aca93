package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/orderflow/internal/domain/address"
	"github.com/xenking/orderflow/internal/domain/cart"
	"github.com/xenking/orderflow/internal/domain/coupon"
	"github.com/xenking/orderflow/internal/domain/product"
	"github.com/xenking/orderflow/internal/domain/user"
)

const (
	upsertUserSQL = `INSERT INTO users (id, email, name, role) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, name = EXCLUDED.name, role = EXCLUDED.role`

	clearDefaultAddressSQL = `UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND id <> $2`

	upsertAddressSQL = `INSERT INTO addresses (id, user_id, street, city, state, country, zip, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET street = EXCLUDED.street, city = EXCLUDED.city,
		state = EXCLUDED.state, country = EXCLUDED.country, zip = EXCLUDED.zip, is_default = EXCLUDED.is_default`

	upsertProductSQL = `INSERT INTO products (id, seller_id, category_id, name, price, discount_price,
		stock_quantity, is_active, is_visible)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET seller_id = EXCLUDED.seller_id, category_id = EXCLUDED.category_id,
		name = EXCLUDED.name, price = EXCLUDED.price, discount_price = EXCLUDED.discount_price,
		stock_quantity = EXCLUDED.stock_quantity, is_active = EXCLUDED.is_active, is_visible = EXCLUDED.is_visible`

	upsertInventorySQL = `INSERT INTO inventory (id, product_id, stock_quantity, reserved_quantity, low_stock_threshold)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id) DO UPDATE SET stock_quantity = EXCLUDED.stock_quantity,
		reserved_quantity = EXCLUDED.reserved_quantity, low_stock_threshold = EXCLUDED.low_stock_threshold`

	upsertCouponSQL = `INSERT INTO coupons (id, code, type, value, min_purchase_amount, max_discount_amount,
		valid_from, valid_to, usage_limit, used_count, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (UPPER(code)) DO UPDATE SET type = EXCLUDED.type, value = EXCLUDED.value,
		min_purchase_amount = EXCLUDED.min_purchase_amount, max_discount_amount = EXCLUDED.max_discount_amount,
		valid_from = EXCLUDED.valid_from, valid_to = EXCLUDED.valid_to,
		usage_limit = EXCLUDED.usage_limit, is_active = EXCLUDED.is_active`

	upsertCartSQL = `INSERT INTO carts (id, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`

	upsertCartItemSQL = `INSERT INTO cart_items (id, cart_id, product_id, quantity, price, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET quantity = EXCLUDED.quantity, price = EXCLUDED.price,
		is_deleted = EXCLUDED.is_deleted`
)

// UpsertUser creates or replaces a user.
func (s *Store) UpsertUser(ctx context.Context, u user.User) error {
	if _, err := s.pool.Exec(ctx, upsertUserSQL, u.ID, u.Email, u.Name, string(u.Role)); err != nil {
		return errors.Wrapf(err, "upsert user %q", u.ID)
	}
	return nil
}

// UpsertAddress creates or replaces an address. A default address clears
// the default flag on the user's other addresses.
func (s *Store) UpsertAddress(ctx context.Context, a address.Address) error {
	b := &pgx.Batch{}
	if a.IsDefault {
		b.Queue(clearDefaultAddressSQL, a.UserID, a.ID)
	}
	b.Queue(upsertAddressSQL, a.ID, a.UserID, a.Street, a.City, a.State, a.Country, a.Zip, a.IsDefault)
	if err := s.pool.SendBatch(ctx, b).Close(); err != nil {
		return errors.Wrapf(err, "upsert address %q", a.ID)
	}
	return nil
}

// UpsertProduct creates or replaces a product.
func (s *Store) UpsertProduct(ctx context.Context, p product.Product) error {
	_, err := s.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.SellerID, p.CategoryID, p.Name, p.Price, p.DiscountPrice,
		p.StockQuantity, p.IsActive, p.IsVisible,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert product %q", p.ID)
	}
	return nil
}

// UpsertInventory creates or replaces a product's inventory row.
func (s *Store) UpsertInventory(ctx context.Context, inv product.Inventory) error {
	_, err := s.pool.Exec(ctx, upsertInventorySQL,
		inv.ID, inv.ProductID, inv.StockQuantity, inv.ReservedQuantity, inv.LowStockThreshold,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert inventory of %q", inv.ProductID)
	}
	return nil
}

// UpsertCoupon creates a coupon or updates the one with the same code. The
// usage counter of an existing coupon is kept.
func (s *Store) UpsertCoupon(ctx context.Context, c coupon.Coupon) error {
	_, err := s.pool.Exec(ctx, upsertCouponSQL,
		c.ID, c.Code, string(c.Type), c.Value, c.MinPurchaseAmount, c.MaxDiscountAmount,
		c.ValidFrom, c.ValidTo, c.UsageLimit, c.UsedCount, c.IsActive,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert coupon %q", c.Code)
	}
	return nil
}

// UpsertCart creates the user's cart if needed and upserts its items.
func (s *Store) UpsertCart(ctx context.Context, c cart.Cart) error {
	b := &pgx.Batch{}
	b.Queue(upsertCartSQL, c.ID, c.UserID)
	for _, it := range c.Items {
		b.Queue(upsertCartItemSQL, it.ID, c.ID, it.ProductID, it.Quantity, it.Price, it.IsDeleted)
	}
	if err := s.pool.SendBatch(ctx, b).Close(); err != nil {
		return errors.Wrapf(err, "upsert cart of %q", c.UserID)
	}
	return nil
}
