package task

import (
	"context"
	"sync"

	xerrors "SongForge/internal/errors"
)

// MemoryQueue is a buffered channel queue for single-process deployments and tests.
type MemoryQueue struct {
	ch        chan string
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryQueue returns a queue buffering size ids; 64 when size <= 0.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{ch: make(chan string, size), done: make(chan struct{})}
}

// Publish enqueues jobID, blocking while the buffer is full.
func (q *MemoryQueue) Publish(ctx context.Context, jobID string) error {
	select {
	case <-q.done:
		return xerrors.New(xerrors.CodeQueueFailure, "memory queue is closed")
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return xerrors.New(xerrors.CodeQueueFailure, "memory queue is closed")
	case q.ch <- jobID:
		return nil
	}
}

// Consume runs workerCount workers until ctx ends or the queue is closed.
// Ids whose handler fails are dropped; the processor republishes retries.
func (q *MemoryQueue) Consume(ctx context.Context, workerCount int, handler Handler) error {
	if workerCount <= 0 {
		workerCount = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-q.done:
					return
				case jobID := <-q.ch:
					_ = handler(ctx, jobID)
				}
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

// Len reports the number of buffered ids.
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

// Close stops consumers and rejects further publishes.
func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}

var _ Queue = (*MemoryQueue)(nil)
