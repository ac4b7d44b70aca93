//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/xenking/orderflow/internal/domain/address"
	"github.com/xenking/orderflow/internal/domain/apperr"
	"github.com/xenking/orderflow/internal/domain/cart"
	"github.com/xenking/orderflow/internal/domain/coupon"
	"github.com/xenking/orderflow/internal/domain/order"
	"github.com/xenking/orderflow/internal/domain/product"
	"github.com/xenking/orderflow/internal/domain/report"
	"github.com/xenking/orderflow/internal/domain/user"
	"github.com/xenking/orderflow/internal/storage/postgres"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newStore(t *testing.T) *postgres.Store {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("orderflow"),
		tcpostgres.WithUsername("orderflow"),
		tcpostgres.WithPassword("orderflow"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.RunMigrations(ctx, pool))
	require.NoError(t, postgres.RunMigrations(ctx, pool), "schema must be re-appliable")

	s := postgres.New(pool)
	seed(t, s)
	return s
}

func seed(t *testing.T, s *postgres.Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	for _, u := range []user.User{
		{ID: "cust", Email: "cust@example.com", Name: "Cust", Role: user.RoleCustomer},
		{ID: "cust2", Email: "cust2@example.com", Name: "Cust Two", Role: user.RoleCustomer},
		{ID: "sa", Email: "sa@example.com", Name: "Seller A", Role: user.RoleSeller},
		{ID: "sb", Email: "sb@example.com", Name: "Seller B", Role: user.RoleSeller},
	} {
		require.NoError(t, s.UpsertUser(ctx, u))
	}
	require.NoError(t, s.UpsertAddress(ctx, address.Address{ID: "addr", UserID: "cust", Street: "1 Main", City: "X", Country: "US", IsDefault: true}))
	require.NoError(t, s.UpsertAddress(ctx, address.Address{ID: "addr2", UserID: "cust2", Street: "2 Main", City: "X", Country: "US", IsDefault: true}))

	discount := dec("45")
	require.NoError(t, s.UpsertProduct(ctx, product.Product{ID: "p1", SellerID: "sa", Name: "Widget", Price: dec("50"), DiscountPrice: &discount, StockQuantity: 10, IsActive: true, IsVisible: true}))
	require.NoError(t, s.UpsertProduct(ctx, product.Product{ID: "p2", SellerID: "sb", Name: "Gadget", Price: dec("20"), StockQuantity: 1, IsActive: true, IsVisible: true}))
	require.NoError(t, s.UpsertInventory(ctx, product.Inventory{ID: "inv-p1", ProductID: "p1", StockQuantity: 10, ReservedQuantity: 2, LowStockThreshold: 3}))

	require.NoError(t, s.UpsertCoupon(ctx, coupon.Coupon{
		ID: "c1", Code: "SAVE10", Type: coupon.TypeFlat, Value: dec("10"),
		ValidFrom: now.Add(-time.Hour), ValidTo: now.Add(time.Hour), UsageLimit: 5, IsActive: true,
	}))
}

func putCart(t *testing.T, s *postgres.Store, userID string, items ...cart.Item) {
	t.Helper()
	for i := range items {
		items[i].ID = userID + "-" + time.Now().Format("150405.000000000") + "-" + items[i].ProductID
	}
	require.NoError(t, s.UpsertCart(context.Background(), cart.Cart{ID: "cart-" + userID, UserID: userID, Items: items}))
}

func newService(t *testing.T, s *postgres.Store) *order.Service {
	t.Helper()
	svc, err := order.NewService(s.Stores(), s, nil)
	require.NoError(t, err)
	return svc
}

func TestPostgres_PlaceOrder(t *testing.T) {
	s := newStore(t)
	svc := newService(t, s)
	ctx := context.Background()

	putCart(t, s, "cust",
		cart.Item{ProductID: "p1", Quantity: 2, Price: dec("50")},
		cart.Item{ProductID: "p2", Quantity: 1, Price: dec("20")},
	)

	v, err := svc.PlaceOrder(ctx, "cust", order.PlaceOrderRequest{AddressID: "addr", CouponCode: "save10"})
	require.NoError(t, err)
	assert.True(t, dec("110").Equal(v.SubTotal), "subtotal %s", v.SubTotal)
	assert.True(t, dec("100").Equal(v.TotalAmount), "total %s", v.TotalAmount)
	require.Len(t, v.Items, 2)
	assert.Equal(t, "p1", v.Items[0].ProductID, "items keep cart order")

	stores := s.Stores()
	inv, err := stores.Inventory.GetByProductID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 8, inv.StockQuantity)
	p1, err := stores.Products.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 8, p1.StockQuantity)
	p2, err := stores.Products.GetByID(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, 0, p2.StockQuantity)

	c, err := stores.Coupons.GetByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 1, c.UsedCount)

	ct, err := stores.Carts.GetByUser(ctx, "cust")
	require.NoError(t, err)
	assert.Empty(t, ct.ActiveItems())

	sellerView, err := svc.GetOrder(ctx, user.Actor{UserID: "sb", Role: user.RoleSeller}, v.ID)
	require.NoError(t, err)
	assert.True(t, dec("20").Equal(sellerView.TotalAmount))

	shipped, err := svc.UpdateStatus(ctx, v.ID, order.UpdateStatusRequest{Status: "Shipped"}, user.Actor{UserID: "sa", Role: user.RoleSeller})
	require.NoError(t, err)
	require.NotNil(t, shipped.ShippedDate)

	rep := report.NewService(stores.Orders, nil, nil)
	r := report.NormalizeRange(nil, nil, time.Now())
	admin, err := rep.Admin(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 1, admin.TotalOrders)
	seller, err := rep.Seller(ctx, "sa", r)
	require.NoError(t, err)
	assert.True(t, dec("90").Equal(seller.TotalRevenue), "seller revenue %s", seller.TotalRevenue)
}

func TestPostgres_PlaceOrder_RollsBack(t *testing.T) {
	s := newStore(t)
	svc := newService(t, s)
	ctx := context.Background()

	putCart(t, s, "cust",
		cart.Item{ProductID: "p1", Quantity: 2, Price: dec("50")},
		cart.Item{ProductID: "p2", Quantity: 3, Price: dec("20")},
	)
	_, err := svc.PlaceOrder(ctx, "cust", order.PlaceOrderRequest{AddressID: "addr", CouponCode: "SAVE10"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "Only 1")

	stores := s.Stores()
	inv, err := stores.Inventory.GetByProductID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 10, inv.StockQuantity)
	c, err := stores.Coupons.GetByCode(ctx, "SAVE10")
	require.NoError(t, err)
	assert.Zero(t, c.UsedCount)
	orders, err := stores.Orders.List(ctx, order.Filter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPostgres_DuplicateOrderNumber(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Now()

	add := func(id string) error {
		return s.InTx(ctx, func(tx order.Stores) error {
			return tx.Orders.Add(ctx, &order.Order{
				ID: id, OrderNumber: "ORD-20250101-000001", UserID: "cust", AddressID: "addr",
				Status: order.StatusPending, CreatedAt: now, UpdatedAt: now,
			})
		})
	}
	require.NoError(t, add("o1"))
	require.ErrorIs(t, add("o2"), order.ErrDuplicateOrderNumber)
}

func TestPostgres_CompetingOrdersForLastUnit(t *testing.T) {
	s := newStore(t)
	svc := newService(t, s)
	ctx := context.Background()

	putCart(t, s, "cust", cart.Item{ProductID: "p2", Quantity: 1, Price: dec("20")})
	putCart(t, s, "cust2", cart.Item{ProductID: "p2", Quantity: 1, Price: dec("20")})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for uid, addr := range map[string]string{"cust": "addr", "cust2": "addr2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(ctx, uid, order.PlaceOrderRequest{AddressID: addr})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	var failed int
	for _, err := range errs {
		if err != nil {
			failed++
			assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
		}
	}
	assert.Equal(t, 1, failed, "exactly one order may take the last unit")

	p2, err := s.Stores().Products.GetByID(ctx, "p2")
	require.NoError(t, err)
	assert.Equal(t, 0, p2.StockQuantity)
}

func TestPostgres_CouponUsageLimit(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for range 5 {
		require.NoError(t, s.InTx(ctx, func(tx order.Stores) error {
			return tx.Coupons.IncrementUsage(ctx, "c1")
		}))
	}
	err := s.InTx(ctx, func(tx order.Stores) error {
		return tx.Coupons.IncrementUsage(ctx, "c1")
	})
	require.ErrorIs(t, err, coupon.ErrCouponUsageLimitReached)
}
