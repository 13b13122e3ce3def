package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolProcessesSubmittedWork(t *testing.T) {
	var processed atomic.Int64
	pool := NewPool[int](4, 100, func(_ context.Context, _ int) error {
		processed.Add(1)
		return nil
	})

	require.NoError(t, pool.Start(context.Background()))
	for i := 0; i < 50; i++ {
		require.NoError(t, pool.Submit(i))
	}
	require.NoError(t, pool.Stop(time.Second))

	assert.Equal(t, int64(50), processed.Load())

	stats := pool.Stats()
	assert.Equal(t, int64(50), stats.Submitted)
	assert.Equal(t, int64(50), stats.Processed)
}

func TestPoolSubmitBeforeStart(t *testing.T) {
	pool := NewPool[int](1, 1, func(_ context.Context, _ int) error { return nil })
	assert.ErrorIs(t, pool.Submit(1), ErrPoolNotStarted)
}

func TestPoolQueueFull(t *testing.T) {
	block := make(chan struct{})
	pool := NewPool[int](1, 1, func(_ context.Context, _ int) error {
		<-block
		return nil
	})
	require.NoError(t, pool.Start(context.Background()))
	defer func() {
		close(block)
		_ = pool.Stop(time.Second)
	}()

	// First item occupies the worker, second fills the queue.
	require.NoError(t, pool.Submit(1))
	assert.Eventually(t, func() bool { return pool.Submit(2) == nil }, time.Second, time.Millisecond)

	err := pool.Submit(3)
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestPoolCountsFailures(t *testing.T) {
	pool := NewPool[int](2, 10, func(_ context.Context, n int) error {
		if n%2 == 0 {
			return errors.New("even numbers fail")
		}
		return nil
	})
	require.NoError(t, pool.Start(context.Background()))

	for i := 0; i < 10; i++ {
		require.NoError(t, pool.Submit(i))
	}
	require.NoError(t, pool.Stop(time.Second))

	assert.Equal(t, int64(5), pool.Stats().Failed)
}

func TestPoolDoubleStart(t *testing.T) {
	pool := NewPool[int](1, 1, func(_ context.Context, _ int) error { return nil })
	require.NoError(t, pool.Start(context.Background()))
	assert.ErrorIs(t, pool.Start(context.Background()), ErrPoolAlreadyStarted)
	require.NoError(t, pool.Stop(time.Second))
}

func TestLanesPreserveOrderPerKey(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string][]int)

	lanes := NewLanes[[2]any](4, 64, func(_ context.Context, work [2]any) error {
		key := work[0].(string)
		seq := work[1].(int)
		mu.Lock()
		seen[key] = append(seen[key], seq)
		mu.Unlock()
		return nil
	})
	require.NoError(t, lanes.Start(context.Background()))

	ctx := context.Background()
	keys := []string{"twin-a", "twin-b", "twin-c"}
	for seq := 0; seq < 100; seq++ {
		for _, key := range keys {
			require.NoError(t, lanes.Submit(ctx, key, [2]any{key, seq}))
		}
	}
	require.NoError(t, lanes.Stop(time.Second))

	for _, key := range keys {
		require.Len(t, seen[key], 100)
		for i, seq := range seen[key] {
			assert.Equal(t, i, seq, "key %s processed out of order", key)
		}
	}
}

func TestLanesSameKeySameLane(t *testing.T) {
	lanes := NewLanes[int](8, 8, func(_ context.Context, _ int) error { return nil })
	assert.Equal(t, lanes.laneFor("twin-a"), lanes.laneFor("twin-a"))
}

func TestLanesSubmitAfterStop(t *testing.T) {
	lanes := NewLanes[int](2, 2, func(_ context.Context, _ int) error { return nil })
	require.NoError(t, lanes.Start(context.Background()))
	require.NoError(t, lanes.Stop(time.Second))

	err := lanes.Submit(context.Background(), "k", 1)
	assert.ErrorIs(t, err, ErrPoolStopped)
}
