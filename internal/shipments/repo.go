package shipments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// InsertIfAbsent creates the shipment unless the order already has one and
// reports whether a row was written.
func (r *Repository) InsertIfAbsent(ctx context.Context, shipment *models.Shipment) (bool, error) {
	res := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "order_id"}}, DoNothing: true}).
		Create(shipment)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "insert shipment")
	}
	return res.RowsAffected > 0, nil
}

// LockByOrderID loads the order's shipment FOR UPDATE.
func (r *Repository) LockByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error) {
	return r.lock(ctx, "order_id = ?", orderID)
}

// LockByID loads the shipment FOR UPDATE.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	return r.lock(ctx, "id = ?", id)
}

func (r *Repository) lock(ctx context.Context, where string, arg any) (*models.Shipment, error) {
	var shipment models.Shipment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&shipment, where, arg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock shipment")
	}
	return &shipment, nil
}

// LastEvent returns the newest timeline entry, or nil for an empty timeline.
func (r *Repository) LastEvent(ctx context.Context, shipmentID uuid.UUID) (*models.TrackingEvent, error) {
	var events []models.TrackingEvent
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("occurred_at DESC").
		Order("created_at DESC").
		Limit(1).
		Find(&events).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tracking events")
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

func (r *Repository) AddEvents(ctx context.Context, events ...models.TrackingEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&events).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert tracking events")
	}
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ShipmentStatus) error {
	err := r.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shipment status")
	}
	return nil
}

// FindByOrderID loads the shipment with its ordered timeline; nil when the
// order has not been paid yet.
func (r *Repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error) {
	var shipments []models.Shipment
	err := r.db.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("occurred_at ASC, created_at ASC") }).
		Where("order_id = ?", orderID).
		Limit(1).
		Find(&shipments).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
	}
	if len(shipments) == 0 {
		return nil, nil
	}
	return &shipments[0], nil
}
