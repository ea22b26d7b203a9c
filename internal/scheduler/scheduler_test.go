package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"securequiz/internal/utils/id"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestScheduler_Disabled(t *testing.T) {
	sched := New(Config{Enabled: false}, nil)
	require.NoError(t, sched.Start(context.Background()))
	select {
	case <-sched.Done():
	case <-time.After(time.Second):
		t.Fatalf("disabled scheduler should report done immediately")
	}
}

func TestScheduler_RegisterValidatesJobs(t *testing.T) {
	sched := New(Config{Enabled: true}, nil)
	noop := func(context.Context) error { return nil }

	assert.Error(t, sched.Register(Job{Schedule: "@every 1h", Run: noop}))
	assert.Error(t, sched.Register(Job{Name: "a", Run: noop}))
	assert.Error(t, sched.Register(Job{Name: "a", Schedule: "@every 1h"}))
	assert.Error(t, sched.Register(Job{Name: "a", Schedule: "not a cron", Run: noop}))

	require.NoError(t, sched.Register(Job{Name: "sweep", Schedule: "@every 1h", Run: noop}))
	require.NoError(t, sched.Register(Job{Name: "nightly", Schedule: "0 3 * * *", Run: noop}))
	assert.Error(t, sched.Register(Job{Name: "sweep", Schedule: "@hourly", Run: noop}))
	assert.Equal(t, []string{"nightly", "sweep"}, sched.JobNames())
}

func TestScheduler_RunNow(t *testing.T) {
	sched := New(Config{Enabled: true, JobTimeout: time.Second}, nil)
	var calls int32
	boom := errors.New("boom")
	require.NoError(t, sched.Register(Job{Name: "count", Schedule: "@every 1h", Run: func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		assert.NotEmpty(t, id.LogIDFromContext(ctx))
		return boom
	}}))

	assert.ErrorIs(t, sched.RunNow(context.Background(), "count"), boom)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Error(t, sched.RunNow(context.Background(), "missing"))
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	sched := New(Config{Enabled: true}, nil)
	require.NoError(t, sched.Register(Job{Name: "noop", Schedule: "@every 1h", Run: func(context.Context) error { return nil }}))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sched.Start(ctx))
	cancel()

	select {
	case <-sched.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not stop after cancel")
	}
	sched.Stop()
}
