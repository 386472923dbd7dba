package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Repository persists carts and their lines.
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

// GetOrCreate returns the shopper's cart. Creation relies on the unique
// owner indexes so concurrent first requests converge on one row.
func (r *Repository) GetOrCreate(ctx context.Context, shopper types.Shopper) (*models.Cart, error) {
	if shopper.IsAnonymous() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session required")
	}

	candidate := models.Cart{}
	lookup := r.db.WithContext(ctx)
	if shopper.IsAuthenticated() {
		userID := *shopper.UserID
		candidate.UserID = &userID
		lookup = lookup.Where("user_id = ?", userID)
	} else {
		session := shopper.SessionID
		candidate.SessionID = &session
		lookup = lookup.Where("session_id = ?", session)
	}

	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&candidate).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}

	var cart models.Cart
	if err := lookup.First(&cart).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return &cart, nil
}

// UpsertItem inserts the line or increments the existing line's quantity in
// a single statement. Snapshots on an existing line are never rewritten.
// created is false when the line already existed.
func (r *Repository) UpsertItem(ctx context.Context, item *models.CartItem) (*models.CartItem, bool, error) {
	candidateID := uuid.New()
	item.ID = candidateID

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_variant_id"}},
			DoUpdates: clause.Set{
				{Column: clause.Column{Name: "quantity"}, Value: gorm.Expr("cart_items.quantity + excluded.quantity")},
				{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("excluded.updated_at")},
			},
		}).
		Omit(clause.Associations).
		Create(item).Error
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert cart item")
	}

	var stored models.CartItem
	if err := r.db.WithContext(ctx).
		Preload("ProductVariant").
		Where("cart_id = ? AND product_variant_id = ?", item.CartID, item.ProductVariantID).
		First(&stored).Error; err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	return &stored, stored.ID == candidateID, nil
}

// FindItem loads a line scoped to its cart.
func (r *Repository) FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Preload("ProductVariant").
		Where("id = ? AND cart_id = ?", itemID, cartID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	return &item, nil
}

// SetItemQuantity overwrites a line's quantity.
func (r *Repository) SetItemQuantity(ctx context.Context, cartID, itemID uuid.UUID, quantity int) error {
	res := r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Updates(map[string]any{"quantity": quantity, "updated_at": r.db.NowFunc()})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update cart item")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (r *Repository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete cart item")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

// ListItems returns the cart's lines oldest first with variants loaded.
func (r *Repository) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("ProductVariant").
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list cart items")
	}
	return items, nil
}

// LockItems reads the cart's lines under row locks for checkout.
func (r *Repository) LockItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart items")
	}
	return items, nil
}

// DeleteItems removes the given lines from the cart; the cart row itself
// persists. Lines added after the caller read the cart are left alone.
func (r *Repository) DeleteItems(ctx context.Context, cartID uuid.UUID, itemIDs []uuid.UUID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND id IN ?", cartID, itemIDs).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}
