package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/orderflow/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT id, code, type, value, min_purchase_amount, max_discount_amount,
		valid_from, valid_to, usage_limit, used_count, is_active
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	incrementCouponUsageSQL = `UPDATE coupons SET used_count = used_count + 1
		WHERE id = $1 AND (usage_limit = 0 OR used_count < usage_limit)`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	q querier
}

// GetByCode looks up a coupon by code, case-insensitively. Inactive coupons
// are returned too so the evaluator can report them.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.q.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "get coupon %q", code)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "get coupon %q", code)
	}
	return &c, nil
}

// IncrementUsage bumps the usage counter unless the limit is already reached,
// in which case coupon.ErrCouponUsageLimitReached is returned.
func (r *CouponRepository) IncrementUsage(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, incrementCouponUsageSQL, id)
	if err != nil {
		return errors.Wrapf(err, "increment usage of coupon %q", id)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(coupon.ErrCouponUsageLimitReached, "coupon %q", id)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c   coupon.Coupon
		typ string
	)
	err := row.Scan(
		&c.ID, &c.Code, &typ, &c.Value, &c.MinPurchaseAmount, &c.MaxDiscountAmount,
		&c.ValidFrom, &c.ValidTo, &c.UsageLimit, &c.UsedCount, &c.IsActive,
	)
	c.Type = coupon.Type(typ)
	return c, err
}
