package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Repository persists orders, their lines and shipping addresses.
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

func (r *Repository) CreateAddress(ctx context.Context, address *models.Address) error {
	return r.db.WithContext(ctx).Create(address).Error
}

func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *Repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&items).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return &order, nil
}

// TransitionStatus moves the order from one status to another. It reports
// false when the order was no longer in from.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update order status")
	}
	return res.RowsAffected > 0, nil
}

// FindVisible loads an order with its lines and address when the shopper may
// see it.
func (r *Repository) FindVisible(ctx context.Context, shopper types.Shopper, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := scoped(r.db.WithContext(ctx), shopper).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Items.ProductVariant").
		Preload("ShippingAddress").
		First(&order, "orders.id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return &order, nil
}

// List returns the shopper's orders newest first.
func (r *Repository) List(ctx context.Context, shopper types.Shopper, cursor *pagination.Cursor, limit int) ([]models.Order, *pagination.Cursor, error) {
	normalized := pagination.NormalizeLimit(limit)
	query := scoped(r.db.WithContext(ctx), shopper)
	if cursor != nil {
		query = query.Where("(orders.created_at < ?) OR (orders.created_at = ? AND orders.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Items.ProductVariant").
		Preload("ShippingAddress").
		Order("orders.created_at DESC").
		Order("orders.id DESC").
		Limit(pagination.LimitWithBuffer(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[len(rows)-1]
		return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}

// ListPendingBefore returns ids of orders still awaiting payment that were
// created before cutoff.
func (r *Repository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ? AND created_at < ?", enums.OrderStatusPendingPayment, cutoff.UTC()).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending orders")
	}
	return ids, nil
}

// LatestPaymentStatuses maps each order to the status of its newest payment.
func (r *Repository) LatestPaymentStatuses(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID]enums.PaymentStatus, error) {
	out := make(map[uuid.UUID]enums.PaymentStatus, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id IN ?", orderIDs).
		Order("created_at ASC").
		Order("id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payments")
	}
	for _, p := range payments {
		out[p.OrderID] = p.Status
	}
	return out, nil
}

// Shipments loads shipments with their ordered timeline, keyed by order.
func (r *Repository) Shipments(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID]*models.Shipment, error) {
	out := make(map[uuid.UUID]*models.Shipment, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	var shipments []models.Shipment
	err := r.db.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("occurred_at ASC, created_at ASC") }).
		Where("order_id IN ?", orderIDs).
		Find(&shipments).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipments")
	}
	for i := range shipments {
		out[shipments[i].OrderID] = &shipments[i]
	}
	return out, nil
}

// scoped restricts orders to the caller: the user's own orders, or orders
// placed from the guest session's cart. Callers with neither see nothing.
func scoped(db *gorm.DB, shopper types.Shopper) *gorm.DB {
	query := db.Model(&models.Order{})
	switch {
	case shopper.IsAuthenticated():
		return query.Where("orders.user_id = ?", *shopper.UserID)
	case !shopper.IsAnonymous():
		return query.Where("orders.cart_id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).Model(&models.Cart{}).Select("id").Where("session_id = ?", shopper.SessionID))
	default:
		return query.Where("1 = 0")
	}
}
