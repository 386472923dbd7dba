package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

const GatewayRazorpay = "razorpay"

// Payment is one settlement attempt against a remote gateway order.
type Payment struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	Gateway           string              `gorm:"column:gateway;not null;default:'razorpay'"`
	Amount            decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	Currency          enums.Currency      `gorm:"column:currency;not null"`
	Status            enums.PaymentStatus `gorm:"column:status;not null"`
	RazorpayOrderID   string              `gorm:"column:razorpay_order_id;not null;uniqueIndex"`
	RazorpayPaymentID *string             `gorm:"column:razorpay_payment_id"`
	RazorpaySignature *string             `gorm:"column:razorpay_signature"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
