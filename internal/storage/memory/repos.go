package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/orderflow/internal/domain/address"
	"github.com/xenking/orderflow/internal/domain/cart"
	"github.com/xenking/orderflow/internal/domain/coupon"
	"github.com/xenking/orderflow/internal/domain/order"
	"github.com/xenking/orderflow/internal/domain/product"
	"github.com/xenking/orderflow/internal/domain/user"
)

var (
	_ user.Repository             = (*Users)(nil)
	_ address.Repository          = (*Addresses)(nil)
	_ cart.Repository             = (*Carts)(nil)
	_ coupon.Repository           = (*Coupons)(nil)
	_ product.Repository          = (*Products)(nil)
	_ product.InventoryRepository = (*Inventory)(nil)
	_ order.Repository            = (*Orders)(nil)
	_ order.PaymentRepository     = (*Payments)(nil)
)

// Users implements user.Repository.
type Users struct{ v *view }

func (r *Users) GetByID(_ context.Context, id string) (out *user.User, err error) {
	err = r.v.do(func(st *state) error {
		if u, ok := st.users[id]; ok {
			out = &u
		}
		return nil
	})
	return out, err
}

// Addresses implements address.Repository.
type Addresses struct{ v *view }

func (r *Addresses) GetByID(_ context.Context, id string) (out *address.Address, err error) {
	err = r.v.do(func(st *state) error {
		if a, ok := st.addresses[id]; ok {
			out = &a
		}
		return nil
	})
	return out, err
}

// Carts implements cart.Repository.
type Carts struct{ v *view }

func (r *Carts) GetByUser(_ context.Context, userID string) (out *cart.Cart, err error) {
	err = r.v.do(func(st *state) error {
		if c, ok := st.carts[userID]; ok {
			c = cloneCart(c)
			out = &c
		}
		return nil
	})
	return out, err
}

func (r *Carts) MarkItemsDeleted(_ context.Context, itemIDs []string) error {
	return r.v.do(func(st *state) error {
		for uid, c := range st.carts {
			for i := range c.Items {
				if slices.Contains(itemIDs, c.Items[i].ID) {
					c.Items[i].IsDeleted = true
				}
			}
			st.carts[uid] = c
		}
		return nil
	})
}

// Coupons implements coupon.Repository.
type Coupons struct{ v *view }

func (r *Coupons) GetByCode(_ context.Context, code string) (out *coupon.Coupon, err error) {
	err = r.v.do(func(st *state) error {
		for _, c := range st.coupons {
			if strings.EqualFold(c.Code, code) {
				out = &c
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *Coupons) IncrementUsage(_ context.Context, id string) error {
	return r.v.do(func(st *state) error {
		c, ok := st.coupons[id]
		if !ok {
			return errors.Errorf("coupon %s not found", id)
		}
		if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
			return coupon.ErrCouponUsageLimitReached
		}
		c.UsedCount++
		st.coupons[id] = c
		return nil
	})
}

// Products implements product.Repository.
type Products struct{ v *view }

func (r *Products) GetByID(_ context.Context, id string) (out *product.Product, err error) {
	err = r.v.do(func(st *state) error {
		if p, ok := st.products[id]; ok {
			out = &p
		}
		return nil
	})
	return out, err
}

func (r *Products) UpdateStock(_ context.Context, id string, qty int) error {
	return r.v.do(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return errors.Wrapf(product.ErrNotFound, "product %s", id)
		}
		p.StockQuantity = qty
		st.products[id] = p
		return nil
	})
}

// Inventory implements product.InventoryRepository.
type Inventory struct{ v *view }

func (r *Inventory) GetByProductID(_ context.Context, productID string) (out *product.Inventory, err error) {
	err = r.v.do(func(st *state) error {
		if inv, ok := st.inventory[productID]; ok {
			out = &inv
		}
		return nil
	})
	return out, err
}

func (r *Inventory) UpdateStock(_ context.Context, id string, qty int) error {
	return r.v.do(func(st *state) error {
		for pid, inv := range st.inventory {
			if inv.ID == id {
				inv.StockQuantity = qty
				st.inventory[pid] = inv
				return nil
			}
		}
		return errors.Errorf("inventory %s not found", id)
	})
}

// Orders implements order.Repository.
type Orders struct{ v *view }

func (r *Orders) ExistsOrderNumber(_ context.Context, number string) (exists bool, err error) {
	err = r.v.do(func(st *state) error {
		exists = hasNumber(st, number)
		return nil
	})
	return exists, err
}

func hasNumber(st *state, number string) bool {
	for _, o := range st.orders {
		if o.OrderNumber == number {
			return true
		}
	}
	return false
}

func (r *Orders) Add(_ context.Context, o *order.Order) error {
	return r.v.do(func(st *state) error {
		if hasNumber(st, o.OrderNumber) {
			return errors.Wrapf(order.ErrDuplicateOrderNumber, "order number %s", o.OrderNumber)
		}
		st.orders[o.ID] = cloneOrder(*o)
		return nil
	})
}

func (r *Orders) GetByIDWithDetails(_ context.Context, id string) (out *order.Order, err error) {
	err = r.v.do(func(st *state) error {
		if o, ok := st.orders[id]; ok {
			o = cloneOrder(o)
			out = &o
		}
		return nil
	})
	return out, err
}

func (r *Orders) UpdateFulfillment(_ context.Context, o *order.Order) error {
	return r.v.do(func(st *state) error {
		cur, ok := st.orders[o.ID]
		if !ok {
			return errors.Errorf("order %s not found", o.ID)
		}
		cur.Status = o.Status
		cur.TrackingNumber = o.TrackingNumber
		cur.ShippedDate = o.ShippedDate
		cur.DeliveredDate = o.DeliveredDate
		cur.UpdatedAt = o.UpdatedAt
		st.orders[o.ID] = cur
		return nil
	})
}

func (r *Orders) List(_ context.Context, f order.Filter) (out []order.Order, err error) {
	err = r.v.do(func(st *state) error {
		for _, o := range st.orders {
			if !matches(o, f) {
				continue
			}
			out = append(out, cloneOrder(o))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(out, func(a, b order.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return page(out, f.Offset, f.Limit), nil
}

func matches(o order.Order, f order.Filter) bool {
	switch {
	case o.IsDeleted:
		return false
	case f.UserID != "" && o.UserID != f.UserID:
		return false
	case f.SellerID != "" && !o.HasSeller(f.SellerID):
		return false
	case f.Status != "" && o.Status != f.Status:
		return false
	case !f.From.IsZero() && o.CreatedAt.Before(f.From):
		return false
	case !f.To.IsZero() && !o.CreatedAt.Before(f.To):
		return false
	}
	return true
}

func page(orders []order.Order, offset, limit int) []order.Order {
	if offset >= len(orders) {
		return nil
	}
	orders = orders[offset:]
	if limit > 0 && limit < len(orders) {
		orders = orders[:limit]
	}
	return orders
}

func (r *Orders) IDsBySeller(_ context.Context, sellerID string) (ids []string, err error) {
	err = r.v.do(func(st *state) error {
		for id, o := range st.orders {
			if o.HasSeller(sellerID) {
				ids = append(ids, id)
			}
		}
		return nil
	})
	slices.Sort(ids)
	return ids, err
}

func (r *Orders) ListByIDs(_ context.Context, ids []string, from, to time.Time) (out []order.Order, err error) {
	err = r.v.do(func(st *state) error {
		for _, id := range ids {
			o, ok := st.orders[id]
			if !ok || !matches(o, order.Filter{From: from, To: to}) {
				continue
			}
			out = append(out, cloneOrder(o))
		}
		return nil
	})
	slices.SortFunc(out, func(a, b order.Order) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, err
}

// Payments implements order.PaymentRepository.
type Payments struct{ v *view }

func (r *Payments) Add(_ context.Context, p *order.Payment) error {
	return r.v.do(func(st *state) error {
		st.payments[p.ID] = *p
		return nil
	})
}
