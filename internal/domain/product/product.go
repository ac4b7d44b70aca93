package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item owned by one seller.
type Product struct {
	ID            string
	SellerID      string
	CategoryID    string
	Name          string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	StockQuantity int
	IsActive      bool
	IsVisible     bool
}

// EffectivePrice returns the discount price when it is set and lower than the list price.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.DiscountPrice != nil && p.DiscountPrice.LessThan(p.Price) {
		return *p.DiscountPrice
	}
	return p.Price
}

// Inventory is the optional per-product stock record. When present it is authoritative.
type Inventory struct {
	ID                string
	ProductID         string
	StockQuantity     int
	ReservedQuantity  int
	LowStockThreshold int
}

// Available returns stock minus reservations, never below zero.
func (i *Inventory) Available() int {
	return max(0, i.StockQuantity-i.ReservedQuantity)
}

// Repository reads products and writes their stock counter.
type Repository interface {
	// GetByID returns nil, nil when the product does not exist.
	GetByID(ctx context.Context, id string) (*Product, error)
	UpdateStock(ctx context.Context, id string, qty int) error
}

// InventoryRepository reads and writes inventory rows.
type InventoryRepository interface {
	// GetByProductID returns nil, nil when the product has no inventory row.
	GetByProductID(ctx context.Context, productID string) (*Inventory, error)
	UpdateStock(ctx context.Context, id string, qty int) error
}
