package chatlog

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO of raw lines between the tailer and a single processing worker.
// Push never blocks, so slow link lookups cannot stall file reading.
type Queue struct {
	mu     sync.Mutex
	items  []string
	notify chan struct{}
	closed bool
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Push appends a line. Lines pushed after Close are dropped.
func (q *Queue) Push(line string) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, line)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pop blocks until a line is available, the queue is closed and drained, or ctx is done.
// ok is false when no more lines will arrive.
func (q *Queue) Pop(ctx context.Context) (line string, ok bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			line = q.items[0]
			q.items[0] = ""
			q.items = q.items[1:]
			q.mu.Unlock()
			return line, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return "", false
		}

		select {
		case <-ctx.Done():
			return "", false
		case <-q.notify:
		}
	}
}

// Len returns the number of pending lines
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops accepting lines; pending lines can still be popped
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}
