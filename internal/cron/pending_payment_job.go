package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultPendingOrderTTL = 48 * time.Hour
	defaultExpiryBatch     = 200
	defaultExpiryRounds    = 10
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type pendingOrderExpirer interface {
	ExpirePending(ctx context.Context, runner orders.TxRunner, cutoff time.Time, limit int) (int, error)
}

// PendingPaymentJobParams configure the pending payment expiry job.
type PendingPaymentJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Orders    pendingOrderExpirer
	TTL       time.Duration
	BatchSize int
}

// NewPendingPaymentJob cancels orders that stayed in PENDING_PAYMENT past the TTL.
func NewPendingPaymentJob(params PendingPaymentJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.DB == nil {
		return nil, errors.New("db runner required")
	}
	if params.Orders == nil {
		return nil, errors.New("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	return &pendingPaymentJob{
		logg:   params.Logger,
		db:     params.DB,
		orders: params.Orders,
		ttl:    ttl,
		batch:  batch,
		rounds: defaultExpiryRounds,
		now:    time.Now,
	}, nil
}

type pendingPaymentJob struct {
	logg   *logger.Logger
	db     txRunner
	orders pendingOrderExpirer
	ttl    time.Duration
	batch  int
	rounds int
	now    func() time.Time
}

func (j *pendingPaymentJob) Name() string { return "pending-payment-expiry" }

func (j *pendingPaymentJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	total := 0
	var errs error
	for round := 0; round < j.rounds; round++ {
		cancelled, err := j.orders.ExpirePending(ctx, j.db, cutoff, j.batch)
		total += cancelled
		if err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		// a short batch means nothing older than the cutoff is left
		if cancelled < j.batch {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"ttl":       j.ttl.String(),
		"cancelled": total,
	})
	if errs != nil {
		j.logg.Error(logCtx, "pending payment expiry finished with errors", errs)
		return fmt.Errorf("pending payment expiry: %w", errs)
	}
	j.logg.Info(logCtx, "pending payment expiry complete")
	return nil
}
