package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New(context.Background(), "every now and then", func(context.Context) error { return nil }, zap.NewNop())
	require.Error(t, err)
}

func TestStart_RunNow(t *testing.T) {
	var runs atomic.Int32
	s, err := New(context.Background(), "@hourly", func(context.Context) error {
		runs.Add(1)
		return errors.New("logged, not fatal")
	}, zap.NewNop())
	require.NoError(t, err)

	s.Start(true)
	defer s.Stop()

	assert.Equal(t, int32(1), runs.Load())
	assert.WithinDuration(t, time.Now().Add(time.Hour), s.Next(), time.Hour)
}

func TestStart_WithoutInitialRun(t *testing.T) {
	var runs atomic.Int32
	s, err := New(context.Background(), "@hourly", func(context.Context) error {
		runs.Add(1)
		return nil
	}, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, s.Next().IsZero())
	s.Start(false)
	s.Stop()
	assert.Zero(t, runs.Load())
}

func TestScheduledRunsDoNotOverlap(t *testing.T) {
	var (
		running atomic.Int32
		maxSeen atomic.Int32
		runs    atomic.Int32
	)
	s, err := New(context.Background(), "@every 1s", func(ctx context.Context) error {
		n := running.Add(1)
		defer running.Add(-1)
		if n > maxSeen.Load() {
			maxSeen.Store(n)
		}
		runs.Add(1)
		select {
		case <-time.After(2500 * time.Millisecond):
		case <-ctx.Done():
		}
		return nil
	}, zap.NewNop())
	require.NoError(t, err)

	s.Start(false)
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	time.Sleep(1500 * time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Zero(t, running.Load(), "Stop waits for the run to return")
}

func TestStop_CancelsRunningJob(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool
	s, err := New(context.Background(), "@every 1s", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}, zap.NewNop())
	require.NoError(t, err)

	s.Start(false)
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}
	s.Stop()
	assert.True(t, cancelled.Load())
}

func TestStart_ParentCancelStopsInitialRun(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	defer cancel()

	var observed atomic.Bool
	s, err := New(parent, "@hourly", func(ctx context.Context) error {
		cancel()
		select {
		case <-ctx.Done():
			observed.Store(true)
			return ctx.Err()
		case <-time.After(2 * time.Second):
			return nil
		}
	}, zap.NewNop())
	require.NoError(t, err)

	start := time.Now()
	s.Start(true)
	defer s.Stop()

	assert.True(t, observed.Load(), "the initial run sees the parent's cancellation")
	assert.Less(t, time.Since(start), time.Second)
}
