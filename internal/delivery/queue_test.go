package delivery

import (
	"errors"
	"sync"
	"testing"

	"github.com/camayank/hookflow/internal/event"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	q := NewQueue(4)
	ev := event.New("client.created", "t1", nil, nil)

	if err := q.Enqueue(ev); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}

	got := <-q.C()
	if got.ID != ev.ID {
		t.Errorf("dequeued event %s, want %s", got.ID, ev.ID)
	}
}

func TestQueueFullRejectsWithoutBlocking(t *testing.T) {
	q := NewQueue(1)
	if err := q.Enqueue(event.New("a", "t", nil, nil)); err != nil {
		t.Fatalf("first Enqueue() error = %v", err)
	}

	err := q.Enqueue(event.New("b", "t", nil, nil))
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("second Enqueue() error = %v, want ErrQueueFull", err)
	}
}

func TestQueueCloseIsIdempotent(t *testing.T) {
	q := NewQueue(1)
	q.Close()
	q.Close() // must not panic

	if err := q.Enqueue(event.New("a", "t", nil, nil)); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Enqueue() after Close error = %v, want ErrQueueClosed", err)
	}

	if _, ok := <-q.C(); ok {
		t.Error("channel still open after Close")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	const producers = 16
	q := NewQueue(producers)

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := q.Enqueue(event.New("x", "t", nil, nil)); err != nil {
				t.Errorf("Enqueue() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if q.Len() != producers {
		t.Errorf("Len() = %d, want %d", q.Len(), producers)
	}
}
