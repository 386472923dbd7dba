package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is an immutable purchase record; only Status and UpdatedAt change
// after creation.
type Order struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID            *uuid.UUID        `gorm:"column:user_id;type:uuid"`
	CartID            *uuid.UUID        `gorm:"column:cart_id;type:uuid"`
	Status            enums.OrderStatus `gorm:"column:status;not null"`
	Subtotal          decimal.Decimal   `gorm:"column:subtotal;type:numeric(10,2);not null"`
	Currency          enums.Currency    `gorm:"column:currency;not null;default:'INR'"`
	ShippingAddressID uuid.UUID         `gorm:"column:shipping_address_id;type:uuid;not null"`
	ShippingAddress   *Address          `gorm:"foreignKey:ShippingAddressID"`
	Items             []OrderItem       `gorm:"foreignKey:OrderID"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
