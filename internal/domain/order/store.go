package order

import (
	"context"

	"github.com/xenking/orderflow/internal/domain/address"
	"github.com/xenking/orderflow/internal/domain/cart"
	"github.com/xenking/orderflow/internal/domain/coupon"
	"github.com/xenking/orderflow/internal/domain/product"
	"github.com/xenking/orderflow/internal/domain/user"
)

// Stores groups the repositories the order workflow touches. A Stores value
// handed out by a Transactor is bound to that transaction.
type Stores struct {
	Carts     cart.Repository
	Addresses address.Repository
	Users     user.Repository
	Coupons   coupon.Repository
	Products  product.Repository
	Inventory product.InventoryRepository
	Orders    Repository
	Payments  PaymentRepository
}

// Transactor runs fn inside a transaction. It commits when fn returns nil and
// rolls back otherwise, returning fn's error unchanged.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx Stores) error) error
}
