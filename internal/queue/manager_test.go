package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T, visibility time.Duration, maxReceive int) *Manager {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir()).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mgr, err := NewManager(db, "test", visibility, maxReceive)
	require.NoError(t, err)
	return mgr
}

func TestManager_EnqueueReceiveAck(t *testing.T) {
	mgr := newTestQueue(t, time.Minute, 3)
	ctx := context.Background()

	id, err := mgr.Enqueue(ctx, Message{Type: "scrape", Body: json.RawMessage(`{"job_id":"job_1"}`)})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	pending, err := mgr.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	msg, ack, err := mgr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "scrape", msg.Type)
	assert.JSONEq(t, `{"job_id":"job_1"}`, string(msg.Body))

	require.NoError(t, ack())

	pending, err = mgr.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending)

	_, _, err = mgr.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestManager_FIFOOrder(t *testing.T) {
	mgr := newTestQueue(t, time.Minute, 3)
	ctx := context.Background()

	for _, payload := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		_, err := mgr.Enqueue(ctx, Message{Type: "scrape", Body: json.RawMessage(payload)})
		require.NoError(t, err)
		time.Sleep(time.Millisecond) // distinct index timestamps
	}

	for _, want := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		msg, ack, err := mgr.Receive(ctx)
		require.NoError(t, err)
		assert.JSONEq(t, want, string(msg.Body))
		require.NoError(t, ack())
	}
}

func TestManager_UnackedMessageInvisibleUntilTimeout(t *testing.T) {
	mgr := newTestQueue(t, 50*time.Millisecond, 3)
	ctx := context.Background()

	_, err := mgr.Enqueue(ctx, Message{Type: "scrape", Body: json.RawMessage(`{}`)})
	require.NoError(t, err)

	_, _, err = mgr.Receive(ctx)
	require.NoError(t, err)

	// Invisible while the first receiver holds it
	_, _, err = mgr.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage)

	// Redelivered once the visibility timeout lapses
	time.Sleep(80 * time.Millisecond)
	msg, ack, err := mgr.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "scrape", msg.Type)
	require.NoError(t, ack())
}

func TestManager_PoisonMessageDropped(t *testing.T) {
	mgr := newTestQueue(t, 10*time.Millisecond, 2)
	ctx := context.Background()

	_, err := mgr.Enqueue(ctx, Message{Type: "scrape", Body: json.RawMessage(`{}`)})
	require.NoError(t, err)

	// Receive without acking until the receive budget is spent
	for i := 0; i < 2; i++ {
		_, _, err = mgr.Receive(ctx)
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
	}

	_, _, err = mgr.Receive(ctx)
	assert.ErrorIs(t, err, ErrNoMessage, "message dropped after max receives")

	pending, err := mgr.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, pending, "poison message fully removed")
}

func TestManager_AckIsIdempotent(t *testing.T) {
	mgr := newTestQueue(t, time.Minute, 3)
	ctx := context.Background()

	_, err := mgr.Enqueue(ctx, Message{Type: "scrape", Body: json.RawMessage(`{}`)})
	require.NoError(t, err)

	_, ack, err := mgr.Receive(ctx)
	require.NoError(t, err)
	require.NoError(t, ack())
	assert.NoError(t, ack(), "double ack is harmless")
}
