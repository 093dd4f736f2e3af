package services

import (
	"sync"

	"github.com/archivum-labs/talkvault-cli/internal/core/domain"
)

// postbackQueue is the ordered, unbounded delivery path from a worker
// to its consumer. Push never blocks the producer: postbacks land in a
// mutex-guarded buffer and a pump goroutine forwards them to the
// outward channel in emission order. Backpressure on the consumer side
// therefore cannot deadlock against the worker's own cancellation
// checks.
type postbackQueue struct {
	mu     sync.Mutex
	buf    []domain.Postback
	closed bool

	notify chan struct{}
	out    chan domain.Postback
}

func newPostbackQueue() *postbackQueue {
	q := &postbackQueue{
		notify: make(chan struct{}, 1),
		out:    make(chan domain.Postback),
	}
	go q.pump()
	return q
}

// Push appends a postback. Never blocks. Pushes after Close are
// dropped.
func (q *postbackQueue) Push(p domain.Postback) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.buf = append(q.buf, p)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Close marks the queue finished. The pump drains the remaining buffer
// and then closes the outward channel.
func (q *postbackQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Channel returns the consumer side. Closed after the final postback.
func (q *postbackQueue) Channel() <-chan domain.Postback {
	return q.out
}

func (q *postbackQueue) pump() {
	for {
		q.mu.Lock()
		batch := q.buf
		q.buf = nil
		closed := q.closed
		q.mu.Unlock()

		for _, p := range batch {
			q.out <- p
		}

		if closed {
			// Anything pushed between the snapshot and the closed flag
			// was observed by the snapshot; the buffer is empty.
			q.mu.Lock()
			remaining := q.buf
			q.buf = nil
			q.mu.Unlock()
			for _, p := range remaining {
				q.out <- p
			}
			close(q.out)
			return
		}

		<-q.notify
	}
}
