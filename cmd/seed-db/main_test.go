package main

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/orderflow/internal/domain/address"
	"github.com/xenking/orderflow/internal/domain/cart"
	"github.com/xenking/orderflow/internal/domain/coupon"
	"github.com/xenking/orderflow/internal/domain/product"
	"github.com/xenking/orderflow/internal/domain/user"
)

type countingSeeder struct {
	calls   map[string]int
	failOn  string
	coupons []coupon.Coupon
}

func (s *countingSeeder) hit(kind string) error {
	s.calls[kind]++
	if kind == s.failOn {
		return errors.New("write failed")
	}
	return nil
}

func (s *countingSeeder) UpsertUser(context.Context, user.User) error { return s.hit("user") }

func (s *countingSeeder) UpsertAddress(context.Context, address.Address) error {
	return s.hit("address")
}

func (s *countingSeeder) UpsertProduct(context.Context, product.Product) error {
	return s.hit("product")
}

func (s *countingSeeder) UpsertInventory(context.Context, product.Inventory) error {
	return s.hit("inventory")
}

func (s *countingSeeder) UpsertCoupon(_ context.Context, c coupon.Coupon) error {
	s.coupons = append(s.coupons, c)
	return s.hit("coupon")
}

func (s *countingSeeder) UpsertCart(context.Context, cart.Cart) error { return s.hit("cart") }

func TestSeed(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s := &countingSeeder{calls: map[string]int{}}

	require.NoError(t, seed(context.Background(), s, demoData(now)))
	assert.Equal(t, map[string]int{
		"user":      4,
		"address":   1,
		"product":   4,
		"inventory": 3,
		"coupon":    2,
		"cart":      1,
	}, s.calls)

	for _, c := range s.coupons {
		assert.True(t, c.Type.Valid())
		assert.True(t, c.ValidFrom.Before(now) && c.ValidTo.After(now), c.Code)
	}
}

func TestDemoDataConsistent(t *testing.T) {
	d := demoData(time.Now())

	roles := map[string]user.Role{}
	for _, u := range d.users {
		roles[u.ID] = u.Role
	}
	products := map[string]bool{}
	for _, p := range d.products {
		assert.Equal(t, user.RoleSeller, roles[p.SellerID], p.ID)
		products[p.ID] = true
	}
	for _, inv := range d.inventories {
		assert.True(t, products[inv.ProductID], inv.ID)
	}
	assert.Less(t, len(d.inventories), len(d.products))
	for _, c := range d.carts {
		assert.Equal(t, user.RoleCustomer, roles[c.UserID])
		for _, it := range c.Items {
			assert.True(t, products[it.ProductID], it.ID)
		}
	}
}

func TestSeedStopsOnError(t *testing.T) {
	s := &countingSeeder{calls: map[string]int{}, failOn: "product"}

	err := seed(context.Background(), s, demoData(time.Now()))
	require.Error(t, err)
	assert.Equal(t, 1, s.calls["product"])
	assert.Zero(t, s.calls["coupon"])
}
