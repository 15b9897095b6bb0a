package tasks

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := NewPool(4, 16, time.Second, nil)

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Submit(func(context.Context) { ran.Add(1) }))
	}
	require.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, int32(10), ran.Load())
}

func TestPool_RejectsWhenQueueFull(t *testing.T) {
	p := NewPool(1, 1, time.Second, nil)
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, p.Submit(func(context.Context) {
		close(started)
		<-release
	}))
	<-started
	require.NoError(t, p.Submit(func(context.Context) {}))
	require.ErrorIs(t, p.Submit(func(context.Context) {}), ErrQueueFull)

	close(release)
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_RejectsAfterShutdown(t *testing.T) {
	p := NewPool(1, 1, time.Second, nil)
	require.NoError(t, p.Shutdown(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))
	require.ErrorIs(t, p.Submit(func(context.Context) {}), ErrClosed)
}

func TestPool_TaskContextHasTimeout(t *testing.T) {
	p := NewPool(1, 1, 20*time.Millisecond, nil)
	got := make(chan error, 1)
	require.NoError(t, p.Submit(func(ctx context.Context) {
		<-ctx.Done()
		got <- ctx.Err()
	}))
	select {
	case err := <-got:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("task context never expired")
	}
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestPool_SurvivesPanickingTask(t *testing.T) {
	p := NewPool(1, 4, time.Second, nil)
	var ran atomic.Bool
	require.NoError(t, p.Submit(func(context.Context) { panic("boom") }))
	require.NoError(t, p.Submit(func(context.Context) { ran.Store(true) }))
	require.NoError(t, p.Shutdown(context.Background()))
	assert.True(t, ran.Load())
}

func TestPool_ShutdownHonoursContext(t *testing.T) {
	p := NewPool(1, 1, time.Minute, nil)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	require.NoError(t, p.Submit(func(context.Context) { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, p.Shutdown(ctx), context.DeadlineExceeded)
}
