package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
)

// Handler processes one decoded queue message body. A returned error marks
// the delivery as failed; the message is still acked (no automatic retry at
// this layer - failed work is recorded by the handler itself).
type Handler func(ctx context.Context, body json.RawMessage) error

// WorkerPool manages a pool of workers that process queue messages
type WorkerPool struct {
	queueMgr     *Manager
	handlers     map[string]Handler
	concurrency  int
	pollInterval time.Duration
	logger       arbor.ILogger
	ctx          context.Context
	cancel       context.CancelFunc
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(queueMgr *Manager, concurrency int, pollInterval time.Duration, logger arbor.ILogger) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if concurrency <= 0 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &WorkerPool{
		queueMgr:     queueMgr,
		handlers:     make(map[string]Handler),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// RegisterHandler registers a handler for a message type
func (wp *WorkerPool) RegisterHandler(msgType string, handler Handler) {
	wp.handlers[msgType] = handler
	wp.logger.Debug().
		Str("type", msgType).
		Msg("Queue handler registered")
}

// Start starts the worker goroutines
func (wp *WorkerPool) Start() {
	wp.logger.Info().
		Int("concurrency", wp.concurrency).
		Msg("Starting worker pool")

	for i := 0; i < wp.concurrency; i++ {
		go wp.worker(i)
	}
}

// Stop gracefully stops the worker pool
func (wp *WorkerPool) Stop() {
	wp.logger.Info().Msg("Stopping worker pool")
	wp.cancel()
}

// worker is the main loop that pulls and processes messages
func (wp *WorkerPool) worker(workerID int) {
	// Stagger worker starts so pollers spread across the interval
	staggerDelay := (wp.pollInterval / time.Duration(wp.concurrency)) * time.Duration(workerID)
	if staggerDelay > 0 {
		time.Sleep(staggerDelay)
	}

	wp.logger.Debug().
		Int("worker_id", workerID).
		Msg("Worker started")

	ticker := time.NewTicker(wp.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug().
				Int("worker_id", workerID).
				Msg("Worker stopped")
			return

		case <-ticker.C:
			if err := wp.processMessage(workerID); err != nil {
				if !errors.Is(err, ErrNoMessage) {
					wp.logger.Warn().
						Err(err).
						Int("worker_id", workerID).
						Msg("Error processing message")
				}
			}
		}
	}
}

// processMessage receives and processes a single message. Handler failures
// and panics are confined to the message: the worker always survives and
// moves on to the next item.
func (wp *WorkerPool) processMessage(workerID int) error {
	msg, ack, err := wp.queueMgr.Receive(wp.ctx)
	if err != nil {
		if errors.Is(err, ErrNoMessage) {
			return ErrNoMessage
		}
		return fmt.Errorf("failed to receive message: %w", err)
	}

	handler, exists := wp.handlers[msg.Type]
	if !exists {
		wp.logger.Error().
			Str("type", msg.Type).
			Int("worker_id", workerID).
			Msg("No handler registered for message type")
		// Ack so an undeliverable message does not cycle through redelivery
		if ackErr := ack(); ackErr != nil {
			wp.logger.Warn().Err(ackErr).Msg("Failed to ack unhandled message")
		}
		return fmt.Errorf("no handler for message type: %s", msg.Type)
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				wp.logger.Error().
					Str("type", msg.Type).
					Int("worker_id", workerID).
					Msgf("Handler panic recovered: %v", r)
			}
		}()

		if err := handler(wp.ctx, msg.Body); err != nil {
			wp.logger.Warn().
				Err(err).
				Str("type", msg.Type).
				Int("worker_id", workerID).
				Msg("Handler reported failure")
		}
	}()

	if err := ack(); err != nil {
		return fmt.Errorf("failed to ack message: %w", err)
	}
	return nil
}
