package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultOutboxRetention     = 30 * 24 * time.Hour
	defaultDeadLetterRetention = 90 * 24 * time.Hour
)

// OutboxRetentionJobParams configures the cleanup. DeadLetters is optional;
// parked events outlive published ones so operators have time to replay.
type OutboxRetentionJobParams struct {
	Logger              *logger.Logger
	Repository          outboxRetentionRepo
	Retention           time.Duration
	DeadLetters         deadLetterPurger
	DeadLetterRetention time.Duration
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type deadLetterPurger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	deadRetention := params.DeadLetterRetention
	if deadRetention <= 0 {
		deadRetention = defaultDeadLetterRetention
	}
	return &outboxRetentionJob{
		logg:          params.Logger,
		repo:          params.Repository,
		retention:     retention,
		deadLetters:   params.DeadLetters,
		deadRetention: deadRetention,
		now:           time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg          *logger.Logger
	repo          outboxRetentionRepo
	retention     time.Duration
	deadLetters   deadLetterPurger
	deadRetention time.Duration
	now           func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.retention)
	deleted, err := j.repo.DeletePublishedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	fields := map[string]any{
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	}

	if j.deadLetters != nil {
		deadCutoff := now.Add(-j.deadRetention)
		purged, err := j.deadLetters.PurgeBefore(ctx, deadCutoff)
		if err != nil {
			return fmt.Errorf("dead letter retention: %w", err)
		}
		fields["dead_letter_cutoff"] = deadCutoff
		fields["dead_letters_deleted"] = purged
	}

	j.logg.Info(j.logg.WithFields(ctx, fields), "outbox retention cleanup complete")
	return nil
}
