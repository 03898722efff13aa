package app

import "sync"

// Inbox carries formatted text from the reader to the dispatcher. Push never
// blocks; the consumer waits on Ready and takes everything with Drain.
type Inbox struct {
	mu    sync.Mutex
	items []string
	ready chan struct{}
}

// NewInbox creates an empty Inbox.
func NewInbox() *Inbox {
	return &Inbox{ready: make(chan struct{}, 1)}
}

// Push queues s and wakes the consumer if it is not already signalled.
func (q *Inbox) Push(s string) {
	q.mu.Lock()
	q.items = append(q.items, s)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready is signalled at least once after every Push.
func (q *Inbox) Ready() <-chan struct{} {
	return q.ready
}

// Drain appends all queued items to dst in push order and empties the queue.
func (q *Inbox) Drain(dst []string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	dst = append(dst, q.items...)
	clear(q.items)
	q.items = q.items[:0]
	return dst
}
