package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// WebhookEvent is the audit row for a verified gateway delivery.
type WebhookEvent struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Gateway           string               `gorm:"column:gateway;not null"`
	EventID           string               `gorm:"column:event_id;not null"`
	EventType         string               `gorm:"column:event_type;not null"`
	RazorpayOrderID   *string              `gorm:"column:razorpay_order_id"`
	RazorpayPaymentID *string              `gorm:"column:razorpay_payment_id"`
	Outcome           enums.WebhookOutcome `gorm:"column:outcome;not null"`
	Payload           json.RawMessage      `gorm:"column:payload;type:jsonb;not null"`
	ReceivedAt        time.Time            `gorm:"column:received_at;autoCreateTime"`
}

func (e *WebhookEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
