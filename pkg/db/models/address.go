package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Address struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	UserID     *uuid.UUID `gorm:"column:user_id;type:uuid"`
	FullName   string     `gorm:"column:full_name;not null"`
	Line1      string     `gorm:"column:line1;not null"`
	Line2      string     `gorm:"column:line2;not null;default:''"`
	City       string     `gorm:"column:city;not null"`
	State      string     `gorm:"column:state;not null"`
	PostalCode string     `gorm:"column:postal_code;not null"`
	Country    string     `gorm:"column:country;not null;default:'IN'"`
	Phone      string     `gorm:"column:phone;not null;default:''"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (a *Address) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
