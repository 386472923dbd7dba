package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// VariantView is the catalog slice shown on cart and order lines.
type VariantView struct {
	ID         uuid.UUID      `json:"id"`
	SKU        string         `json:"sku"`
	Price      string         `json:"price"`
	MRP        *string        `json:"mrp"`
	Attributes map[string]any `json:"attributes"`
	StockQty   int            `json:"stock_qty"`
}

type ItemView struct {
	ID             uuid.UUID    `json:"id"`
	ProductVariant *VariantView `json:"product_variant"`
	Quantity       int          `json:"quantity"`
	PriceSnapshot  string       `json:"price_snapshot"`
	MRPSnapshot    *string      `json:"mrp_snapshot"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type View struct {
	ID        uuid.UUID  `json:"id"`
	ItemCount int        `json:"item_count"`
	Subtotal  string     `json:"subtotal"`
	Items     []ItemView `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ItemResult reports the line after an add; Created distinguishes a new
// line from a merge into an existing one.
type ItemResult struct {
	Item    ItemView
	Created bool
}

// Money renders an amount with two decimal places.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func optionalMoney(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := Money(*d)
	return &s
}

// NewVariantView maps a catalog variant; nil in, nil out.
func NewVariantView(v *models.ProductVariant) *VariantView {
	if v == nil {
		return nil
	}
	attrs := v.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	return &VariantView{
		ID:         v.ID,
		SKU:        v.SKU,
		Price:      Money(v.Price),
		MRP:        optionalMoney(v.MRP),
		Attributes: attrs,
		StockQty:   v.StockQty,
	}
}

func newItemView(item models.CartItem) ItemView {
	return ItemView{
		ID:             item.ID,
		ProductVariant: NewVariantView(item.ProductVariant),
		Quantity:       item.Quantity,
		PriceSnapshot:  Money(item.PriceSnapshot),
		MRPSnapshot:    optionalMoney(item.MRPSnapshot),
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
}

// Totals returns the unit count and snapshot subtotal of the lines.
func Totals(items []models.CartItem) (int, decimal.Decimal) {
	count := 0
	subtotal := decimal.Zero
	for _, item := range items {
		count += item.Quantity
		subtotal = subtotal.Add(item.LineTotal())
	}
	return count, subtotal
}

func newView(cart *models.Cart, items []models.CartItem) *View {
	count, subtotal := Totals(items)
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, newItemView(item))
	}
	return &View{
		ID:        cart.ID,
		ItemCount: count,
		Subtotal:  Money(subtotal),
		Items:     views,
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
}
