package delivery

import (
	"errors"
	"sync"

	"github.com/camayank/hookflow/internal/event"
	"github.com/camayank/hookflow/internal/metrics"
)

var (
	ErrQueueFull   = errors.New("dispatch queue full")
	ErrQueueClosed = errors.New("dispatch queue closed")
)

// Queue is the in-process dispatch queue decoupling event emission from
// delivery work. Many producers enqueue; a single worker drains. Enqueue
// never blocks: a full buffer rejects the event rather than stalling the
// emitting caller.
type Queue struct {
	mu     sync.Mutex
	ch     chan event.Event
	closed bool
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{ch: make(chan event.Event, size)}
}

// Enqueue hands an event to the delivery pipeline.
func (q *Queue) Enqueue(ev event.Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- ev:
		metrics.QueueDepth.Set(float64(len(q.ch)))
		return nil
	default:
		metrics.QueueDroppedTotal.Inc()
		return ErrQueueFull
	}
}

// C is the consumer side; it is closed by Close after the last buffered
// event has been made available.
func (q *Queue) C() <-chan event.Event {
	return q.ch
}

// Len returns the number of buffered events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops the queue. Safe to call more than once.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}
