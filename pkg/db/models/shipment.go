package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Shipment is created at most once per order.
type Shipment struct {
	ID                    uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID               uuid.UUID            `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Carrier               string               `gorm:"column:carrier;not null"`
	TrackingNumber        string               `gorm:"column:tracking_number;not null"`
	Status                enums.ShipmentStatus `gorm:"column:status;not null"`
	EstimatedDeliveryDate *time.Time           `gorm:"column:estimated_delivery_date"`
	Events                []TrackingEvent      `gorm:"foreignKey:ShipmentID"`
	CreatedAt             time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Shipment) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// TrackingEvent is an append-only timeline entry for a shipment.
type TrackingEvent struct {
	ID          uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	ShipmentID  uuid.UUID                 `gorm:"column:shipment_id;type:uuid;not null"`
	Status      enums.TrackingEventStatus `gorm:"column:status;not null"`
	Description string                    `gorm:"column:description;not null;default:''"`
	Location    string                    `gorm:"column:location;not null;default:''"`
	OccurredAt  time.Time                 `gorm:"column:occurred_at;not null"`
	CreatedAt   time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (e *TrackingEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
