package postgres

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/orderflow/internal/domain/order"
)

const insertPaymentSQL = `INSERT INTO payments (id, order_id, amount, status, method, transaction_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

var _ order.PaymentRepository = (*PaymentRepository)(nil)

// PaymentRepository implements order.PaymentRepository backed by PostgreSQL.
type PaymentRepository struct {
	q querier
}

// Add inserts a payment record.
func (r *PaymentRepository) Add(ctx context.Context, p *order.Payment) error {
	_, err := r.q.Exec(ctx, insertPaymentSQL,
		p.ID, p.OrderID, p.Amount, string(p.Status), string(p.Method), p.TransactionID, p.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert payment for order %q", p.OrderID)
	}
	return nil
}
