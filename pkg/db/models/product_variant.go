package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductVariant is the purchasable unit owned by the catalog. The commerce
// pipeline only reads it to snapshot prices.
type ProductVariant struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	SKU        string           `gorm:"column:sku;not null;uniqueIndex"`
	Price      decimal.Decimal  `gorm:"column:price;type:numeric(10,2);not null"`
	MRP        *decimal.Decimal `gorm:"column:mrp;type:numeric(10,2)"`
	Attributes map[string]any   `gorm:"column:attributes;type:jsonb;serializer:json"`
	StockQty   int              `gorm:"column:stock_qty;not null;default:0"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
