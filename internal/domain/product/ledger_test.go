package product

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducts struct {
	items     map[string]*Product
	updateErr error
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (*Product, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) UpdateStock(_ context.Context, id string, qty int) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.items[id].StockQuantity = qty
	return nil
}

type fakeInventory struct {
	rows map[string]*Inventory // keyed by product id
}

func (f *fakeInventory) GetByProductID(_ context.Context, productID string) (*Inventory, error) {
	inv, ok := f.rows[productID]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInventory) UpdateStock(_ context.Context, id string, qty int) error {
	for _, inv := range f.rows {
		if inv.ID == id {
			inv.StockQuantity = qty
			return nil
		}
	}
	return errors.New("no row")
}

func newFixture() (*fakeProducts, *fakeInventory) {
	products := &fakeProducts{items: map[string]*Product{
		"tracked":   {ID: "tracked", StockQuantity: 10},
		"untracked": {ID: "untracked", StockQuantity: 3},
	}}
	inventory := &fakeInventory{rows: map[string]*Inventory{
		"tracked": {ID: "inv-1", ProductID: "tracked", StockQuantity: 8, ReservedQuantity: 2, LowStockThreshold: 2},
	}}
	return products, inventory
}

func TestLedger_Available(t *testing.T) {
	products, inventory := newFixture()
	l := NewLedger(products, inventory)
	ctx := context.Background()

	got, err := l.Available(ctx, "tracked")
	require.NoError(t, err)
	assert.Equal(t, 6, got, "inventory row wins over product counter")

	got, err = l.Available(ctx, "untracked")
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	_, err = l.Available(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_Available_ReservedExceedsStock(t *testing.T) {
	products, inventory := newFixture()
	inventory.rows["tracked"].ReservedQuantity = 20

	got, err := NewLedger(products, inventory).Available(context.Background(), "tracked")
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestLedger_Deduct(t *testing.T) {
	tests := []struct {
		name        string
		productID   string
		qty         int
		wantLeft    int
		wantInv     int
		wantProduct int
	}{
		{name: "inventory row mirrored to product", productID: "tracked", qty: 3, wantLeft: 5, wantInv: 5, wantProduct: 5},
		{name: "inventory floors at zero", productID: "tracked", qty: 100, wantLeft: 0, wantInv: 0, wantProduct: 0},
		{name: "product fallback", productID: "untracked", qty: 2, wantLeft: 1, wantInv: -1, wantProduct: 1},
		{name: "product fallback floors at zero", productID: "untracked", qty: 9, wantLeft: 0, wantInv: -1, wantProduct: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, inventory := newFixture()
			l := NewLedger(products, inventory)

			left, err := l.Deduct(context.Background(), tt.productID, tt.qty)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLeft, left)
			assert.Equal(t, tt.wantProduct, products.items[tt.productID].StockQuantity)
			if tt.wantInv >= 0 {
				assert.Equal(t, tt.wantInv, inventory.rows[tt.productID].StockQuantity)
			}
		})
	}
}

func TestLedger_Deduct_Errors(t *testing.T) {
	products, inventory := newFixture()
	l := NewLedger(products, inventory)

	_, err := l.Deduct(context.Background(), "untracked", -1)
	require.Error(t, err)

	_, err = l.Deduct(context.Background(), "missing", 1)
	require.ErrorIs(t, err, ErrNotFound)

	products.updateErr = errors.New("db down")
	_, err = l.Deduct(context.Background(), "tracked", 1)
	require.Error(t, err)
}

func TestProduct_EffectivePrice(t *testing.T) {
	lower := decimal.RequireFromString("40")
	higher := decimal.RequireFromString("60")

	tests := []struct {
		name     string
		discount *decimal.Decimal
		want     string
	}{
		{name: "no discount", want: "50"},
		{name: "lower discount", discount: &lower, want: "40"},
		{name: "discount not lower", discount: &higher, want: "50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Product{Price: decimal.RequireFromString("50"), DiscountPrice: tt.discount}
			assert.True(t, decimal.RequireFromString(tt.want).Equal(p.EffectivePrice()))
		})
	}
}
