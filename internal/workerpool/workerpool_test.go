package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	pool := New(context.Background(), 3)

	var count int64
	const n = 20
	for i := 0; i < n; i++ {
		err := pool.Submit(context.Background(), func(ctx context.Context) {
			atomic.AddInt64(&count, 1)
		})
		require.NoError(t, err)
	}

	require.NoError(t, pool.Shutdown())
	assert.Equal(t, int64(n), atomic.LoadInt64(&count))
}

func TestSubmitAfterShutdownFails(t *testing.T) {
	pool := New(context.Background(), 1)
	require.NoError(t, pool.Shutdown())

	err := pool.Submit(context.Background(), func(ctx context.Context) {})
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestShutdownWaitsForInFlightTask(t *testing.T) {
	pool := New(context.Background(), 1)

	started := make(chan struct{})
	finished := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) {
		close(started)
		time.Sleep(20 * time.Millisecond)
		close(finished)
	}))

	<-started
	require.NoError(t, pool.Shutdown())
	select {
	case <-finished:
	default:
		t.Fatal("Shutdown returned before the in-flight task finished")
	}
}

func TestSubmitRespectsContextCancellation(t *testing.T) {
	pool := New(context.Background(), 1)
	defer pool.Shutdown()

	// Fill the single worker with a long task, then saturate the queue.
	block := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) {
		<-block
	}))
	for i := 0; i < QueueCapacity; i++ {
		require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) {}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := pool.Submit(ctx, func(ctx context.Context) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(block)
}
