package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func TestOutboxRetentionJobDeletesPublishedRows(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	job := newOutboxRetentionJob(t, repo, 0)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 1, repo.called)
	require.True(t, repo.lastCutoff.Equal(now.Add(-defaultOutboxRetention)))
}

func TestOutboxRetentionJobUsesConfiguredRetention(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	job := newOutboxRetentionJob(t, repo, 72*time.Hour)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.True(t, repo.lastCutoff.Equal(now.Add(-72*time.Hour)))
}

func TestOutboxRetentionJobPurgesDeadLetters(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{}
	letters := &fakeOutboxRetentionRepo{}
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Repository:  repo,
		DeadLetters: letters,
	})
	require.NoError(t, err)
	job := jobIface.(*outboxRetentionJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 1, letters.called)
	require.True(t, letters.lastCutoff.Equal(now.Add(-defaultDeadLetterRetention)))

	letters.err = errors.New("locked")
	require.ErrorContains(t, job.Run(context.Background()), "dead letter retention")
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	repo := &fakeOutboxRetentionRepo{err: errors.New("boom")}
	job := newOutboxRetentionJob(t, repo, 0)

	require.Error(t, job.Run(context.Background()))
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxRetentionRepo, retention time.Duration) *outboxRetentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Repository: repo,
		Retention:  retention,
	})
	require.NoError(t, err)
	job, ok := jobIface.(*outboxRetentionJob)
	require.True(t, ok)
	return job
}

type fakeOutboxRetentionRepo struct {
	lastCutoff time.Time
	called     int
	err        error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return 7, nil
}

func (f *fakeOutboxRetentionRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return f.DeletePublishedBefore(ctx, cutoff)
}
