package payments

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
)

// Repository persists gateway payment attempts.
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

func (r *Repository) Create(ctx context.Context, payment *models.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}
	return nil
}

// FindByRazorpayOrderID returns nil when no payment carries the remote id.
func (r *Repository) FindByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).First(&payment, "razorpay_order_id = ?", razorpayOrderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return &payment, nil
}

// LockByID loads the payment FOR UPDATE.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&payment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
	}
	return &payment, nil
}

// MarkPaid settles the payment when its current status may move to PAID and
// reports whether this call did it.
func (r *Repository) MarkPaid(ctx context.Context, id uuid.UUID, razorpayPaymentID string, signature *string) (bool, error) {
	updates := map[string]any{
		"status":              enums.PaymentStatusPaid,
		"razorpay_payment_id": razorpayPaymentID,
		"updated_at":          time.Now().UTC(),
	}
	if signature != nil {
		updates["razorpay_signature"] = *signature
	}
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status IN ?", id, enums.PaymentStatusesLeadingTo(enums.PaymentStatusPaid)).
		Updates(updates)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark payment paid")
	}
	return res.RowsAffected > 0, nil
}

// MarkFailed records a failed attempt when the current status may move to
// FAILED.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, razorpayPaymentID string) (bool, error) {
	updates := map[string]any{
		"status":     enums.PaymentStatusFailed,
		"updated_at": time.Now().UTC(),
	}
	if razorpayPaymentID != "" {
		updates["razorpay_payment_id"] = razorpayPaymentID
	}
	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status IN ?", id, enums.PaymentStatusesLeadingTo(enums.PaymentStatusFailed)).
		Updates(updates)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark payment failed")
	}
	return res.RowsAffected > 0, nil
}
