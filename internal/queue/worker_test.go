package queue

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWorkerPool_ProcessesRegisteredType(t *testing.T) {
	mgr := newTestQueue(t, time.Minute, 3)
	pool := NewWorkerPool(mgr, 2, 10*time.Millisecond, arbor.NewLogger())

	var handled atomic.Int32
	pool.RegisterHandler("scrape", func(ctx context.Context, body json.RawMessage) error {
		handled.Add(1)
		return nil
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := mgr.Enqueue(ctx, Message{Type: "scrape", Body: json.RawMessage(`{}`)})
		require.NoError(t, err)
	}

	pool.Start()
	defer pool.Stop()

	waitFor(t, 2*time.Second, func() bool { return handled.Load() == 3 })

	pending, err := mgr.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending, "handled messages are acked")
}

func TestWorkerPool_HandlerErrorStillAcks(t *testing.T) {
	mgr := newTestQueue(t, time.Minute, 3)
	pool := NewWorkerPool(mgr, 1, 10*time.Millisecond, arbor.NewLogger())

	var calls atomic.Int32
	pool.RegisterHandler("scrape", func(ctx context.Context, body json.RawMessage) error {
		calls.Add(1)
		return assert.AnError
	})

	ctx := context.Background()
	_, err := mgr.Enqueue(ctx, Message{Type: "scrape", Body: json.RawMessage(`{}`)})
	require.NoError(t, err)

	pool.Start()
	defer pool.Stop()

	waitFor(t, 2*time.Second, func() bool {
		pending, err := mgr.Pending(ctx)
		require.NoError(t, err)
		return pending == 0
	})
	assert.Equal(t, int32(1), calls.Load(), "failed handler runs once; no retry at this layer")
}

func TestWorkerPool_UnhandledTypeAcked(t *testing.T) {
	mgr := newTestQueue(t, time.Minute, 3)
	pool := NewWorkerPool(mgr, 1, 10*time.Millisecond, arbor.NewLogger())
	pool.RegisterHandler("scrape", func(ctx context.Context, body json.RawMessage) error { return nil })

	ctx := context.Background()
	_, err := mgr.Enqueue(ctx, Message{Type: "unknown", Body: json.RawMessage(`{}`)})
	require.NoError(t, err)

	pool.Start()
	defer pool.Stop()

	waitFor(t, 2*time.Second, func() bool {
		pending, err := mgr.Pending(ctx)
		require.NoError(t, err)
		return pending == 0
	})
}

func TestWorkerPool_PanicConfinedToMessage(t *testing.T) {
	mgr := newTestQueue(t, time.Minute, 3)
	pool := NewWorkerPool(mgr, 1, 10*time.Millisecond, arbor.NewLogger())

	var handled atomic.Int32
	pool.RegisterHandler("scrape", func(ctx context.Context, body json.RawMessage) error {
		if handled.Add(1) == 1 {
			panic("bad message")
		}
		return nil
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := mgr.Enqueue(ctx, Message{Type: "scrape", Body: json.RawMessage(`{}`)})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	pool.Start()
	defer pool.Stop()

	waitFor(t, 2*time.Second, func() bool { return handled.Load() == 2 })
}
