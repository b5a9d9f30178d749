package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingRunner struct {
	runs    atomic.Int32
	block   chan struct{}
	sawStop atomic.Bool
}

func (r *blockingRunner) Run(ctx context.Context) (*RunResult, error) {
	r.runs.Add(1)
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			r.sawStop.Store(true)
			return nil, ctx.Err()
		}
	}
	return &RunResult{}, nil
}

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	_, err := NewScheduler(&blockingRunner{}, "every minute please", time.Second)
	assert.Error(t, err)
}

func TestNewScheduler_Defaults(t *testing.T) {
	s, err := NewScheduler(&blockingRunner{}, "", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSchedule, s.schedule)
	assert.Equal(t, 50*time.Second, s.timeout)
}

func TestScheduler_RunNow(t *testing.T) {
	r := &blockingRunner{}
	s, err := NewScheduler(r, "@every 1h", time.Second)
	require.NoError(t, err)

	s.RunNow()
	s.RunNow()
	assert.Equal(t, int32(2), r.runs.Load())
}

func TestScheduler_RunTimeout(t *testing.T) {
	r := &blockingRunner{block: make(chan struct{})}
	s, err := NewScheduler(r, "@every 1h", 20*time.Millisecond)
	require.NoError(t, err)

	s.RunNow()
	assert.True(t, r.sawStop.Load(), "run should observe the timeout")
}

func TestScheduler_StopCancelsScheduledRun(t *testing.T) {
	r := &blockingRunner{block: make(chan struct{})}
	s, err := NewScheduler(r, "@every 1s", time.Minute)
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return r.runs.Load() > 0 }, 3*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.True(t, r.sawStop.Load())
}

func TestScheduler_StopCancelsManualRun(t *testing.T) {
	r := &blockingRunner{block: make(chan struct{})}
	s, err := NewScheduler(r, "@every 1h", time.Minute)
	require.NoError(t, err)
	s.Start()

	done := make(chan struct{})
	go func() {
		s.RunNow()
		close(done)
	}()
	assert.Eventually(t, func() bool { return r.runs.Load() > 0 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("manual run was not cancelled")
	}
}
