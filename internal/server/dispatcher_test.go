package server

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ============================================================================
// ORDERING
// ============================================================================

func TestDispatcher_ProcessesInSubmissionOrder(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	d := NewDispatcher(func(connectionID string, data []byte) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, connectionID+":"+string(data))
	}, zap.NewNop())

	ctx := context.Background()
	require.True(t, d.Submit(ctx, "a", []byte("1")))
	require.True(t, d.Submit(ctx, "b", []byte("1")))
	require.True(t, d.Submit(ctx, "a", []byte("2")))

	require.NoError(t, d.Stop(ctx))

	assert.Equal(t, []string{"a:1", "b:1", "a:2"}, seen)
}

func TestDispatcher_NeverRunsHandlersConcurrently(t *testing.T) {
	var active, maxActive atomic.Int32
	d := NewDispatcher(func(string, []byte) {
		n := active.Add(1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
	}, zap.NewNop())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				d.Submit(context.Background(), "c", nil)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, d.Stop(context.Background()))

	assert.Equal(t, int32(1), maxActive.Load())
}

// ============================================================================
// FAILURE AND SHUTDOWN
// ============================================================================

func TestDispatcher_RecoversFromPanic(t *testing.T) {
	var handled atomic.Int32
	d := NewDispatcher(func(_ string, data []byte) {
		if string(data) == "boom" {
			panic("handler exploded")
		}
		handled.Add(1)
	}, zap.NewNop())

	ctx := context.Background()
	d.Submit(ctx, "a", []byte("boom"))
	d.Submit(ctx, "a", []byte("fine"))
	d.Submit(ctx, "b", []byte("fine"))
	require.NoError(t, d.Stop(ctx))

	assert.Equal(t, int32(2), handled.Load())
}

func TestDispatcher_SubmitAfterStop(t *testing.T) {
	assert := assert.New(t)
	d := NewDispatcher(func(string, []byte) {}, zap.NewNop())
	require.NoError(t, d.Stop(context.Background()))

	assert.False(d.Submit(context.Background(), "a", []byte("late")))
	assert.NoError(d.Stop(context.Background()), "stop is idempotent")
}

func TestDispatcher_SubmitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	d := NewDispatcher(func(string, []byte) { <-release }, zap.NewNop())
	defer func() {
		close(release)
		d.Stop(context.Background())
	}()

	// One frame occupies the loop, the rest fill the queue.
	for range inboundQueueSize + 1 {
		require.True(t, d.Submit(context.Background(), "a", nil))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.False(t, d.Submit(ctx, "a", nil))
}
