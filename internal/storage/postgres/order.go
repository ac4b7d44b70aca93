package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/orderflow/internal/domain/order"
)

const (
	orderColumns = `o.id, o.order_number, o.user_id, o.address_id, o.status, o.sub_total,
		o.discount_amount, o.tax_amount, o.total_amount, o.coupon_id, o.tracking_number,
		o.shipped_date, o.delivered_date, o.created_at, o.updated_at, o.is_deleted`

	existsOrderNumberSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`

	insertOrderSQL = `INSERT INTO orders (id, order_number, user_id, address_id, status, sub_total,
		discount_amount, tax_amount, total_amount, coupon_id, tracking_number,
		shipped_date, delivered_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, position, product_id, seller_id,
		product_name, quantity, unit_price, total_price, discount_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`

	listOrderItemsSQL = `SELECT id, order_id, product_id, seller_id, product_name, quantity,
		unit_price, total_price, discount_amount, is_deleted
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`

	updateFulfillmentSQL = `UPDATE orders SET status = $2, tracking_number = $3,
		shipped_date = $4, delivered_date = $5, updated_at = $6
		WHERE id = $1`

	orderIDsBySellerSQL = `SELECT DISTINCT order_id FROM order_items
		WHERE seller_id = $1 AND NOT is_deleted ORDER BY order_id`

	listOrdersByIDsSQL = `SELECT ` + orderColumns + ` FROM orders o
		WHERE o.id = ANY($1) AND NOT o.is_deleted AND o.created_at >= $2 AND o.created_at < $3
		ORDER BY o.created_at`

	orderNumberConstraint = "orders_order_number_key"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	q querier
}

// ExistsOrderNumber reports whether an order already uses number.
func (r *OrderRepository) ExistsOrderNumber(ctx context.Context, number string) (bool, error) {
	rows, err := r.q.Query(ctx, existsOrderNumberSQL, number)
	if err != nil {
		return false, errors.Wrap(err, "check order number")
	}
	exists, err := pgx.CollectExactlyOneRow(rows, pgx.RowTo[bool])
	if err != nil {
		return false, errors.Wrap(err, "check order number")
	}
	return exists, nil
}

// Add inserts the order and its items in one batch.
func (r *OrderRepository) Add(ctx context.Context, o *order.Order) error {
	b := &pgx.Batch{}
	b.Queue(insertOrderSQL,
		o.ID, o.OrderNumber, o.UserID, o.AddressID, string(o.Status), o.SubTotal,
		o.DiscountAmount, o.TaxAmount, o.TotalAmount, o.CouponID, o.TrackingNumber,
		o.ShippedDate, o.DeliveredDate, o.CreatedAt, o.UpdatedAt,
	)
	for i, it := range o.Items {
		b.Queue(insertOrderItemSQL,
			it.ID, o.ID, i, it.ProductID, it.SellerID,
			it.ProductName, it.Quantity, it.UnitPrice, it.TotalPrice, it.DiscountAmount,
		)
	}

	br := r.q.SendBatch(ctx, b)
	for range b.Len() {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			if isUniqueViolation(err, orderNumberConstraint) {
				return errors.Wrapf(order.ErrDuplicateOrderNumber, "order number %s", o.OrderNumber)
			}
			return errors.Wrapf(err, "insert order %q", o.ID)
		}
	}
	if err := br.Close(); err != nil {
		return errors.Wrapf(err, "insert order %q", o.ID)
	}
	return nil
}

// GetByIDWithDetails returns the order with its items, or nil when it does not exist.
func (r *OrderRepository) GetByIDWithDetails(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.q.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	orders := []order.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// UpdateFulfillment writes status, tracking number and fulfillment timestamps.
func (r *OrderRepository) UpdateFulfillment(ctx context.Context, o *order.Order) error {
	tag, err := r.q.Exec(ctx, updateFulfillmentSQL,
		o.ID, string(o.Status), o.TrackingNumber, o.ShippedDate, o.DeliveredDate, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "update order %q", o.ID)
	}
	if tag.RowsAffected() == 0 {
		return errors.Errorf("order %q not found", o.ID)
	}
	return nil
}

// List returns non-deleted orders matching f with their items, newest first.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	var (
		where = []string{"NOT o.is_deleted"}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.UserID != "" {
		where = append(where, "o.user_id = "+arg(f.UserID))
	}
	if f.SellerID != "" {
		where = append(where, `EXISTS (SELECT 1 FROM order_items oi
			WHERE oi.order_id = o.id AND oi.seller_id = `+arg(f.SellerID)+` AND NOT oi.is_deleted)`)
	}
	if f.Status != "" {
		where = append(where, "o.status = "+arg(string(f.Status)))
	}
	if !f.From.IsZero() {
		where = append(where, "o.created_at >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		where = append(where, "o.created_at < "+arg(f.To))
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + orderColumns + " FROM orders o WHERE ")
	sb.WriteString(strings.Join(where, " AND "))
	sb.WriteString(" ORDER BY o.created_at DESC, o.id")
	if f.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(f.Limit))
	}
	if f.Offset > 0 {
		sb.WriteString(" OFFSET " + arg(f.Offset))
	}

	rows, err := r.q.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// IDsBySeller returns ids of orders holding at least one non-deleted item of sellerID.
func (r *OrderRepository) IDsBySeller(ctx context.Context, sellerID string) ([]string, error) {
	rows, err := r.q.Query(ctx, orderIDsBySellerSQL, sellerID)
	if err != nil {
		return nil, errors.Wrapf(err, "order ids of seller %q", sellerID)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrapf(err, "order ids of seller %q", sellerID)
	}
	return ids, nil
}

// ListByIDs returns non-deleted orders among ids created in [from, to), oldest first.
func (r *OrderRepository) ListByIDs(ctx context.Context, ids []string, from, to time.Time) ([]order.Order, error) {
	rows, err := r.q.Query(ctx, listOrdersByIDsSQL, ids, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "list orders by ids")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "list orders by ids")
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) attachItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.q.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "list order items")
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[order.Item])
	if err != nil {
		return errors.Wrap(err, "list order items")
	}
	for _, it := range items {
		i := index[it.OrderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.AddressID, &status, &o.SubTotal,
		&o.DiscountAmount, &o.TaxAmount, &o.TotalAmount, &o.CouponID, &o.TrackingNumber,
		&o.ShippedDate, &o.DeliveredDate, &o.CreatedAt, &o.UpdatedAt, &o.IsDeleted,
	)
	o.Status = order.Status(status)
	return o, err
}
