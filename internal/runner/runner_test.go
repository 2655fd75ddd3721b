package runner

import (
	"context"
	"errors"
	"io"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTask struct {
	name        string
	schedule    string
	timeout     time.Duration
	runs        atomic.Int32
	err         error
	sawDeadline atomic.Bool
}

func (t *countingTask) Name() string           { return t.name }
func (t *countingTask) Schedule() string       { return t.schedule }
func (t *countingTask) Timeout() time.Duration { return t.timeout }

func (t *countingTask) Run(ctx context.Context) error {
	if _, ok := ctx.Deadline(); ok {
		t.sawDeadline.Store(true)
	}
	t.runs.Add(1)
	return t.err
}

func quiet() Option {
	return WithLogger(log.New(io.Discard, "", 0))
}

func TestRegistry(t *testing.T) {
	reg := NewTaskRegistry()
	require.NoError(t, reg.Register(&countingTask{name: "b"}))
	require.NoError(t, reg.Register(&countingTask{name: "a"}))

	err := reg.Register(&countingTask{name: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	assert.Equal(t, []string{"a", "b"}, reg.Names())
	_, ok := reg.Get("a")
	assert.True(t, ok)
	_, ok = reg.Get("missing")
	assert.False(t, ok)

	all := reg.All()
	delete(all, "a")
	assert.Len(t, reg.All(), 2, "All returns a copy")
}

func TestRunNow(t *testing.T) {
	task := &countingTask{name: "check", schedule: "@every 1h", timeout: time.Second, err: errors.New("boom")}
	reg := NewTaskRegistry()
	require.NoError(t, reg.Register(task))
	r := NewRunner(reg, quiet())

	err := r.RunNow(context.Background(), "check")
	assert.EqualError(t, err, "boom")
	assert.Equal(t, int32(1), task.runs.Load())
	assert.True(t, task.sawDeadline.Load(), "task runs under its timeout")

	assert.Error(t, r.RunNow(context.Background(), "nope"))
}

func TestScheduleRunsTasks(t *testing.T) {
	task := &countingTask{name: "check", schedule: "@every 1s", timeout: time.Second}
	reg := NewTaskRegistry()
	require.NoError(t, reg.Register(task))
	r := NewRunner(reg, quiet())

	require.NoError(t, r.Schedule(context.Background()))
	defer r.Stop()

	assert.False(t, r.Next("check").IsZero())
	assert.Eventually(t, func() bool { return task.runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduleRejectsBadExpression(t *testing.T) {
	reg := NewTaskRegistry()
	require.NoError(t, reg.Register(&countingTask{name: "bad", schedule: "every now and then", timeout: time.Second}))
	r := NewRunner(reg, quiet())

	err := r.Schedule(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to schedule task bad")
}

func TestReschedule(t *testing.T) {
	task := &countingTask{name: "check", schedule: "@every 1h", timeout: time.Second}
	reg := NewTaskRegistry()
	require.NoError(t, reg.Register(task))
	r := NewRunner(reg, quiet())
	require.NoError(t, r.Schedule(context.Background()))
	defer r.Stop()

	hourly := r.Next("check")
	task.schedule = "@every 1m"
	require.NoError(t, r.Reschedule(context.Background(), "check"))
	assert.True(t, r.Next("check").Before(hourly))
	assert.Len(t, r.cron.Entries(), 1)

	assert.Error(t, r.Reschedule(context.Background(), "nope"))
}

func TestStartStopsOnContextCancel(t *testing.T) {
	reg := NewTaskRegistry()
	require.NoError(t, reg.Register(&countingTask{name: "check", schedule: "@every 1h", timeout: time.Second}))
	r := NewRunner(reg, quiet())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
}
