package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// ErrNoMessage is returned when the queue is empty
var ErrNoMessage = errors.New("no messages in queue")

// Message is the opaque queue payload. The worker pool decodes it into a
// typed job message.
type Message struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body"`
}

// queueMessage is the internal structure stored in Badger
type queueMessage struct {
	ID           string    `json:"id"`
	Body         Message   `json:"body"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
	VisibleAt    time.Time `json:"visible_at"`
	ReceiveCount int       `json:"receive_count"`
}

// Manager implements a persistent queue using BadgerDB.
//
// Messages are stored under queue:{name}:msg:{id}; a visibility index under
// queue:{name}:index:{visibleAt}:{id} keeps ready messages scannable in
// delivery order. A received message becomes invisible for the visibility
// timeout; unacked messages are redelivered, up to maxReceive times.
type Manager struct {
	db                *badger.DB
	queueName         string
	visibilityTimeout time.Duration
	maxReceive        int
}

// NewManager creates a new Badger-backed queue manager
func NewManager(db *badger.DB, queueName string, visibilityTimeout time.Duration, maxReceive int) (*Manager, error) {
	if db == nil {
		return nil, errors.New("badger db is required")
	}
	if queueName == "" {
		return nil, errors.New("queue name is required")
	}
	if visibilityTimeout <= 0 {
		visibilityTimeout = 5 * time.Minute
	}
	if maxReceive <= 0 {
		maxReceive = 3
	}

	return &Manager{
		db:                db,
		queueName:         queueName,
		visibilityTimeout: visibilityTimeout,
		maxReceive:        maxReceive,
	}, nil
}

// Enqueue adds a message to the queue and returns its queue handle
func (m *Manager) Enqueue(ctx context.Context, msg Message) (string, error) {
	id := uuid.New().String()

	qMsg := queueMessage{
		ID:           id,
		Body:         msg,
		EnqueuedAt:   time.Now(),
		VisibleAt:    time.Now(), // Immediately visible
		ReceiveCount: 0,
	}

	data, err := json.Marshal(qMsg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal queue message: %w", err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(m.msgKey(id), data); err != nil {
			return err
		}
		return txn.Set(m.indexKey(qMsg.VisibleAt, id), []byte{})
	})
	if err != nil {
		return "", fmt.Errorf("failed to enqueue message: %w", err)
	}

	return id, nil
}

// Receive pulls the next visible message from the queue. It returns the
// message and an ack function that removes it permanently. If the ack
// function is never called, the message reappears after the visibility
// timeout.
func (m *Manager) Receive(ctx context.Context) (*Message, func() error, error) {
	var qMsg queueMessage
	var msgID string
	var oldIndexKey []byte

	err := m.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:index:", m.queueName))
		it := txn.NewIterator(opts)
		defer it.Close()

		now := time.Now()
		found := false

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)

			ts, id, err := m.parseIndexKey(key)
			if err != nil {
				continue // Skip invalid keys
			}

			if ts.After(now) {
				// Keys sort by timestamp; nothing later is ready either.
				break
			}

			msgItem, err := txn.Get(m.msgKey(id))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					// Orphaned index entry, clean it up
					if err := txn.Delete(key); err != nil {
						return err
					}
					continue
				}
				return err
			}

			if err := msgItem.Value(func(val []byte) error {
				return json.Unmarshal(val, &qMsg)
			}); err != nil {
				return err
			}

			if qMsg.ReceiveCount >= m.maxReceive {
				// Poison message: drop it rather than loop forever
				if err := txn.Delete(key); err != nil {
					return err
				}
				if err := txn.Delete(m.msgKey(id)); err != nil {
					return err
				}
				continue
			}

			found = true
			msgID = id
			oldIndexKey = key
			break
		}

		if !found {
			return ErrNoMessage
		}

		qMsg.ReceiveCount++
		qMsg.VisibleAt = time.Now().Add(m.visibilityTimeout)

		newData, err := json.Marshal(qMsg)
		if err != nil {
			return err
		}
		if err := txn.Set(m.msgKey(msgID), newData); err != nil {
			return err
		}

		if err := txn.Delete(oldIndexKey); err != nil {
			return err
		}
		return txn.Set(m.indexKey(qMsg.VisibleAt, msgID), []byte{})
	})

	if err != nil {
		return nil, nil, err
	}

	ackFn := func() error {
		return m.db.Update(func(txn *badger.Txn) error {
			msgKey := m.msgKey(msgID)
			item, err := txn.Get(msgKey)
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return nil // Already deleted
				}
				return err
			}

			var current queueMessage
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &current)
			}); err != nil {
				return err
			}

			if err := txn.Delete(m.indexKey(current.VisibleAt, msgID)); err != nil {
				if !errors.Is(err, badger.ErrKeyNotFound) {
					return err
				}
			}
			return txn.Delete(msgKey)
		})
	}

	return &qMsg.Body, ackFn, nil
}

// Pending counts messages currently stored for this queue, visible or not
func (m *Manager) Pending(ctx context.Context) (int, error) {
	count := 0
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(fmt.Sprintf("queue:%s:msg:", m.queueName))
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count pending messages: %w", err)
	}
	return count, nil
}

func (m *Manager) msgKey(id string) []byte {
	return []byte(fmt.Sprintf("queue:%s:msg:%s", m.queueName, id))
}

func (m *Manager) indexKey(visibleAt time.Time, id string) []byte {
	// Zero pad to 20 digits so string ordering matches numeric ordering
	return []byte(fmt.Sprintf("queue:%s:index:%020d:%s", m.queueName, visibleAt.UnixNano(), id))
}

func (m *Manager) parseIndexKey(key []byte) (time.Time, string, error) {
	prefixStr := fmt.Sprintf("queue:%s:index:", m.queueName)
	if len(key) <= len(prefixStr) {
		return time.Time{}, "", fmt.Errorf("invalid key length")
	}

	suffix := string(key[len(prefixStr):])
	if len(suffix) < 21 { // 20 digits + 1 colon
		return time.Time{}, "", fmt.Errorf("invalid suffix length")
	}

	tsStr := suffix[:20]
	id := suffix[21:]

	var ts int64
	if _, err := fmt.Sscanf(tsStr, "%d", &ts); err != nil {
		return time.Time{}, "", err
	}

	return time.Unix(0, ts), id, nil
}
