// Package memory implements the order workflow stores in process memory.
// A transaction works on a copy of the data that replaces the live copy on
// commit, so a failed transaction leaves nothing behind.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/xenking/orderflow/internal/domain/address"
	"github.com/xenking/orderflow/internal/domain/cart"
	"github.com/xenking/orderflow/internal/domain/coupon"
	"github.com/xenking/orderflow/internal/domain/order"
	"github.com/xenking/orderflow/internal/domain/product"
	"github.com/xenking/orderflow/internal/domain/user"
)

var _ order.Transactor = (*Store)(nil)

type state struct {
	users     map[string]user.User
	addresses map[string]address.Address
	carts     map[string]cart.Cart // by user id
	coupons   map[string]coupon.Coupon
	products  map[string]product.Product
	inventory map[string]product.Inventory // by product id
	orders    map[string]order.Order
	payments  map[string]order.Payment
}

func newState() *state {
	return &state{
		users:     map[string]user.User{},
		addresses: map[string]address.Address{},
		carts:     map[string]cart.Cart{},
		coupons:   map[string]coupon.Coupon{},
		products:  map[string]product.Product{},
		inventory: map[string]product.Inventory{},
		orders:    map[string]order.Order{},
		payments:  map[string]order.Payment{},
	}
}

func (s *state) clone() *state {
	c := &state{
		users:     maps.Clone(s.users),
		addresses: maps.Clone(s.addresses),
		carts:     make(map[string]cart.Cart, len(s.carts)),
		coupons:   maps.Clone(s.coupons),
		products:  maps.Clone(s.products),
		inventory: maps.Clone(s.inventory),
		orders:    make(map[string]order.Order, len(s.orders)),
		payments:  maps.Clone(s.payments),
	}
	for k, v := range s.carts {
		c.carts[k] = cloneCart(v)
	}
	for k, v := range s.orders {
		c.orders[k] = cloneOrder(v)
	}
	return c
}

func cloneCart(c cart.Cart) cart.Cart {
	c.Items = slices.Clone(c.Items)
	return c
}

func cloneOrder(o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

// Store is an in-memory backend for every order workflow repository.
type Store struct {
	mu sync.Mutex
	st *state
}

// New returns an empty Store.
func New() *Store {
	return &Store{st: newState()}
}

// view is a handle over a state. Outside transactions it locks the store per
// call; inside one the transaction already holds the lock.
type view struct {
	mu *sync.Mutex
	st func() *state
}

func (v *view) do(fn func(st *state) error) error {
	if v.mu != nil {
		v.mu.Lock()
		defer v.mu.Unlock()
	}
	return fn(v.st())
}

// Stores returns repositories reading and writing the live data.
func (s *Store) Stores() order.Stores {
	return storesFor(&view{mu: &s.mu, st: func() *state { return s.st }})
}

// InTx runs fn against a private copy of the data and publishes the copy
// only when fn succeeds. Transactions are serialized.
func (s *Store) InTx(ctx context.Context, fn func(tx order.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.st.clone()
	if err := fn(storesFor(&view{st: func() *state { return work }})); err != nil {
		return err
	}
	s.st = work
	return nil
}

func storesFor(v *view) order.Stores {
	return order.Stores{
		Carts:     &Carts{v},
		Addresses: &Addresses{v},
		Users:     &Users{v},
		Coupons:   &Coupons{v},
		Products:  &Products{v},
		Inventory: &Inventory{v},
		Orders:    &Orders{v},
		Payments:  &Payments{v},
	}
}

// PutUser stores u, replacing any user with the same id.
func (s *Store) PutUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[u.ID] = u
}

// PutAddress stores a, replacing any address with the same id.
func (s *Store) PutAddress(a address.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.addresses[a.ID] = a
}

// PutCart stores c as its user's cart.
func (s *Store) PutCart(c cart.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.carts[c.UserID] = cloneCart(c)
}

// PutCoupon stores c, replacing any coupon with the same id.
func (s *Store) PutCoupon(c coupon.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.coupons[c.ID] = c
}

// PutProduct stores p, replacing any product with the same id.
func (s *Store) PutProduct(p product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.products[p.ID] = p
}

// PutInventory stores inv as its product's inventory row.
func (s *Store) PutInventory(inv product.Inventory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.inventory[inv.ProductID] = inv
}

// PutOrder stores o as is, bypassing order number checks.
func (s *Store) PutOrder(o order.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.orders[o.ID] = cloneOrder(o)
}

// Product returns a copy of the stored product.
func (s *Store) Product(id string) (product.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.products[id]
	return p, ok
}

// InventoryOf returns a copy of the product's inventory row.
func (s *Store) InventoryOf(productID string) (product.Inventory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.st.inventory[productID]
	return inv, ok
}

// Coupon returns a copy of the stored coupon.
func (s *Store) Coupon(id string) (coupon.Coupon, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.coupons[id]
	return c, ok
}

// CartOf returns a copy of the user's cart.
func (s *Store) CartOf(userID string) (cart.Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.st.carts[userID]
	return cloneCart(c), ok
}

// AllOrders returns copies of every stored order.
func (s *Store) AllOrders() []order.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]order.Order, 0, len(s.st.orders))
	for _, o := range s.st.orders {
		out = append(out, cloneOrder(o))
	}
	return out
}

// AllPayments returns copies of every stored payment.
func (s *Store) AllPayments() []order.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(maps.Values(s.st.payments))
}
