package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/orderflow/internal/domain/address"
	"github.com/xenking/orderflow/internal/domain/cart"
	"github.com/xenking/orderflow/internal/domain/coupon"
	"github.com/xenking/orderflow/internal/domain/product"
	"github.com/xenking/orderflow/internal/domain/user"
	"github.com/xenking/orderflow/internal/storage/postgres"
)

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

// Seeder is implemented by *postgres.Store.
type Seeder interface {
	UpsertUser(ctx context.Context, u user.User) error
	UpsertAddress(ctx context.Context, a address.Address) error
	UpsertProduct(ctx context.Context, p product.Product) error
	UpsertInventory(ctx context.Context, inv product.Inventory) error
	UpsertCoupon(ctx context.Context, c coupon.Coupon) error
	UpsertCart(ctx context.Context, c cart.Cart) error
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	return seed(ctx, postgres.New(pool), demoData(time.Now().UTC()))
}

type dataset struct {
	users       []user.User
	addresses   []address.Address
	products    []product.Product
	inventories []product.Inventory
	coupons     []coupon.Coupon
	carts       []cart.Cart
}

func seed(ctx context.Context, s Seeder, d dataset) error {
	for _, u := range d.users {
		if err := s.UpsertUser(ctx, u); err != nil {
			return err
		}
		slog.Info("upserted user", slog.String("id", u.ID), slog.String("role", string(u.Role)))
	}
	for _, a := range d.addresses {
		if err := s.UpsertAddress(ctx, a); err != nil {
			return err
		}
	}
	for _, p := range d.products {
		if err := s.UpsertProduct(ctx, p); err != nil {
			return err
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}
	for _, inv := range d.inventories {
		if err := s.UpsertInventory(ctx, inv); err != nil {
			return err
		}
	}
	for _, c := range d.coupons {
		if err := s.UpsertCoupon(ctx, c); err != nil {
			return err
		}
		slog.Info("upserted coupon", slog.String("code", c.Code))
	}
	for _, c := range d.carts {
		if err := s.UpsertCart(ctx, c); err != nil {
			return err
		}
		slog.Info("upserted cart", slog.String("user", c.UserID), slog.Int("items", len(c.Items)))
	}
	return nil
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pricePtr(s string) *decimal.Decimal {
	d := price(s)
	return &d
}

// demoData is a small storefront: one admin, two sellers and a customer
// with a filled cart.
func demoData(now time.Time) dataset {
	const (
		adminID    = "00000000-0000-0000-0000-000000000001"
		sellerAID  = "00000000-0000-0000-0000-000000000002"
		sellerBID  = "00000000-0000-0000-0000-000000000003"
		customerID = "00000000-0000-0000-0000-000000000004"
	)
	products := []product.Product{
		{ID: "prod-keyboard", SellerID: sellerAID, CategoryID: "peripherals", Name: "Mechanical Keyboard", Price: price("120.00"), DiscountPrice: pricePtr("99.00"), StockQuantity: 25, IsActive: true, IsVisible: true},
		{ID: "prod-mouse", SellerID: sellerAID, CategoryID: "peripherals", Name: "Wireless Mouse", Price: price("45.00"), StockQuantity: 40, IsActive: true, IsVisible: true},
		{ID: "prod-monitor", SellerID: sellerBID, CategoryID: "displays", Name: "27in Monitor", Price: price("310.00"), StockQuantity: 8, IsActive: true, IsVisible: true},
		{ID: "prod-cable", SellerID: sellerBID, CategoryID: "accessories", Name: "USB-C Cable", Price: price("9.50"), StockQuantity: 200, IsActive: true, IsVisible: true},
	}
	return dataset{
		users: []user.User{
			{ID: adminID, Email: "admin@orderflow.local", Name: "Admin", Role: user.RoleAdmin},
			{ID: sellerAID, Email: "keys@orderflow.local", Name: "Keys & Co", Role: user.RoleSeller},
			{ID: sellerBID, Email: "screens@orderflow.local", Name: "Screen Shop", Role: user.RoleSeller},
			{ID: customerID, Email: "jane@orderflow.local", Name: "Jane Doe", Role: user.RoleCustomer},
		},
		addresses: []address.Address{
			{ID: "addr-jane-home", UserID: customerID, Street: "1 Main St", City: "Springfield", State: "IL", Country: "US", Zip: "62701", IsDefault: true},
		},
		products: products,
		// prod-cable has no inventory row and is tracked on the product itself.
		inventories: []product.Inventory{
			{ID: "inv-keyboard", ProductID: "prod-keyboard", StockQuantity: 25, LowStockThreshold: 5},
			{ID: "inv-mouse", ProductID: "prod-mouse", StockQuantity: 40, LowStockThreshold: 10},
			{ID: "inv-monitor", ProductID: "prod-monitor", StockQuantity: 8, LowStockThreshold: 2},
		},
		coupons: []coupon.Coupon{
			{ID: "coupon-save10", Code: "SAVE10", Type: coupon.TypeFlat, Value: price("10"), ValidFrom: now.AddDate(0, 0, -1), ValidTo: now.AddDate(1, 0, 0), UsageLimit: 1000, IsActive: true},
			{ID: "coupon-halfoff", Code: "HALFOFF", Type: coupon.TypePercentage, Value: price("50"), MinPurchaseAmount: pricePtr("50"), MaxDiscountAmount: pricePtr("100"), ValidFrom: now.AddDate(0, 0, -1), ValidTo: now.AddDate(0, 3, 0), UsageLimit: 100, IsActive: true},
		},
		carts: []cart.Cart{
			{ID: "cart-jane", UserID: customerID, Items: []cart.Item{
				{ID: "cart-jane-1", CartID: "cart-jane", ProductID: "prod-keyboard", Quantity: 1, Price: price("99.00")},
				{ID: "cart-jane-2", CartID: "cart-jane", ProductID: "prod-cable", Quantity: 3, Price: price("9.50")},
			}},
		},
	}
}
