package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// View is the caller-facing projection of an order.
type View struct {
	ID             string           `json:"id"`
	OrderNumber    string           `json:"orderNumber"`
	UserID         string           `json:"userId"`
	AddressID      string           `json:"addressId"`
	Status         Status           `json:"status"`
	Items          []ItemView       `json:"items"`
	SubTotal       decimal.Decimal  `json:"subTotal"`
	DiscountAmount *decimal.Decimal `json:"discountAmount"`
	TaxAmount      *decimal.Decimal `json:"taxAmount"`
	TotalAmount    decimal.Decimal  `json:"totalAmount"`
	CouponID       *string          `json:"couponId,omitempty"`
	TrackingNumber *string          `json:"trackingNumber,omitempty"`
	ShippedDate    *time.Time       `json:"shippedDate,omitempty"`
	DeliveredDate  *time.Time       `json:"deliveredDate,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// ItemView is the caller-facing projection of an order line.
type ItemView struct {
	ID             string           `json:"id"`
	ProductID      string           `json:"productId"`
	ProductName    string           `json:"productName"`
	SellerID       string           `json:"sellerId"`
	Quantity       int              `json:"quantity"`
	UnitPrice      decimal.Decimal  `json:"unitPrice"`
	TotalPrice     decimal.Decimal  `json:"totalPrice"`
	DiscountAmount *decimal.Decimal `json:"discountAmount,omitempty"`
}

// NewView projects the whole order. The discount is omitted when no coupon was applied.
func NewView(o *Order) *View {
	v := newViewHeader(o)
	v.Items = itemViews(o.Items)
	v.SubTotal = o.SubTotal
	v.TotalAmount = o.TotalAmount
	if o.CouponID != nil {
		d := o.DiscountAmount
		v.DiscountAmount = &d
	}
	tax := o.TaxAmount
	v.TaxAmount = &tax
	return v
}

// NewSellerView projects only sellerID's items. Totals are recomputed from
// those items; discount and tax stay blank.
func NewSellerView(o *Order, sellerID string) *View {
	items := o.SellerItems(sellerID)
	v := newViewHeader(o)
	v.Items = itemViews(items)
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.TotalPrice)
	}
	v.SubTotal = sum
	v.TotalAmount = sum
	v.CouponID = nil
	return v
}

func newViewHeader(o *Order) *View {
	return &View{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		AddressID:      o.AddressID,
		Status:         o.Status,
		CouponID:       o.CouponID,
		TrackingNumber: o.TrackingNumber,
		ShippedDate:    o.ShippedDate,
		DeliveredDate:  o.DeliveredDate,
		CreatedAt:      o.CreatedAt,
	}
}

func itemViews(items []Item) []ItemView {
	out := make([]ItemView, 0, len(items))
	for _, it := range items {
		if it.IsDeleted {
			continue
		}
		out = append(out, ItemView{
			ID:             it.ID,
			ProductID:      it.ProductID,
			ProductName:    it.ProductName,
			SellerID:       it.SellerID,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			TotalPrice:     it.TotalPrice,
			DiscountAmount: it.DiscountAmount,
		})
	}
	return out
}
