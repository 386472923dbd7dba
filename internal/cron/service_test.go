package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type fakeLock struct {
	acquired bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	registry := NewRegistry(&testJob{name: "success"}, &testJob{name: "fail", err: errors.New("boom")})
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     &fakeLock{},
		Interval: 0,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx := context.Background()
	if err := service.RunOnce(ctx); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if success, ok := jobs[0].(*testJob); ok {
		if success.runs != 1 {
			t.Fatalf("expected success job to run once, ran %d", success.runs)
		}
	} else {
		t.Fatalf("first job type mismatch")
	}
	if failure, ok := jobs[1].(*testJob); ok {
		if failure.runs != 1 {
			t.Fatalf("expected failure job to run once, ran %d", failure.runs)
		}
	} else {
		t.Fatalf("second job type mismatch")
	}
}

type panicJob struct{}

func (panicJob) Name() string { return "panics" }

func (panicJob) Run(context.Context) error { panic("nil map") }

func TestServiceRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "guarded"}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{Output: io.Discard}),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{acquired: true},
	})
	require.NoError(t, err)

	require.NoError(t, service.RunOnce(context.Background()))
	require.Zero(t, job.runs)
}

func TestServiceRunOnceRecoversPanicsAndRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	after := &testJob{name: "after"}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{Output: io.Discard}),
		Registry: NewRegistry(panicJob{}, after),
		Lock:     &fakeLock{},
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	require.NoError(t, err)

	require.NoError(t, service.RunOnce(context.Background()))
	require.Equal(t, 1, after.runs)

	failures, err := testutil.GatherAndCount(reg, "storefront_job_failure")
	require.NoError(t, err)
	require.Equal(t, 1, failures)
	successes, err := testutil.GatherAndCount(reg, "storefront_job_success")
	require.NoError(t, err)
	require.Equal(t, 1, successes)
}
