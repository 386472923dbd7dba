package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderItem struct {
	ID               uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID        `gorm:"column:order_id;type:uuid;not null"`
	ProductVariantID uuid.UUID        `gorm:"column:product_variant_id;type:uuid;not null"`
	ProductVariant   *ProductVariant  `gorm:"foreignKey:ProductVariantID"`
	Quantity         int              `gorm:"column:quantity;not null"`
	PriceSnapshot    decimal.Decimal  `gorm:"column:price_snapshot;type:numeric(10,2);not null"`
	MRPSnapshot      *decimal.Decimal `gorm:"column:mrp_snapshot;type:numeric(10,2)"`
	CreatedAt        time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// LineTotal is quantity times the snapshotted unit price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.PriceSnapshot.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
