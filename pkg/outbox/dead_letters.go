package outbox

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// DeadLetters holds outbox events the publisher stopped retrying. A parked
// order.paid means downstream never heard about a settled order, so rows
// stay until an operator replays them or retention drops them.
type DeadLetters struct {
	db *gorm.DB
}

func NewDeadLetters(db *gorm.DB) *DeadLetters {
	return &DeadLetters{db: db}
}

// Park copies event into outbox_dlq inside the publisher's transaction.
func (d *DeadLetters) Park(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if !reason.IsValid() {
		return errors.New("dead letter reason required")
	}
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if cause != nil {
		msg := truncate(cause.Error(), maxLastErrorLen)
		entry.ErrorMessage = &msg
	}
	return tx.WithContext(ctx).Create(&entry).Error
}

// PurgeBefore drops dead letters parked before cutoff.
func (d *DeadLetters) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := d.db.WithContext(ctx).
		Where("failed_at < ?", cutoff).
		Delete(&models.OutboxDLQ{})
	return res.RowsAffected, res.Error
}
