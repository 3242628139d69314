// Package queue implements the visit-once crawl frontier.
package queue

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrEmpty is returned by Pop when no URL is pending.
var ErrEmpty = errors.New("queue: empty")

// Order decides which pending entry Pop returns.
type Order int

const (
	// LIFO pops the most recently pushed entry (depth-first crawl).
	LIFO Order = iota
	// FIFO pops the oldest entry (breadth-first crawl).
	FIFO
)

func (o Order) String() string {
	switch o {
	case LIFO:
		return "lifo"
	case FIFO:
		return "fifo"
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// ParseOrder maps "lifo" and "fifo" (any case) to an Order.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(s) {
	case "", "lifo":
		return LIFO, nil
	case "fifo":
		return FIFO, nil
	}
	return LIFO, fmt.Errorf("unknown queue order %q", s)
}

// Entry is a pending URL and the depth it was discovered at.
type Entry struct {
	URL   string
	Depth int
}

// Queue holds pending entries and every URL ever pushed. A URL is admitted
// once per Queue lifetime, popping it does not make it admissible again.
// It is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	order   Order
	seen    map[string]struct{}
	pending []Entry
}

func New(order Order) *Queue {
	return &Queue{
		order: order,
		seen:  make(map[string]struct{}),
	}
}

// Push admits e if its URL was never pushed before and reports whether it
// did.
func (q *Queue) Push(e Entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.seen[e.URL]; ok {
		return false
	}
	q.seen[e.URL] = struct{}{}
	q.pending = append(q.pending, e)
	return true
}

// Pop removes and returns one pending entry, or ErrEmpty.
func (q *Queue) Pop() (Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.pending)
	if n == 0 {
		return Entry{}, ErrEmpty
	}

	var e Entry
	if q.order == FIFO {
		e = q.pending[0]
		q.pending[0] = Entry{}
		q.pending = q.pending[1:]
	} else {
		e = q.pending[n-1]
		q.pending = q.pending[:n-1]
	}
	return e, nil
}

// Seen reports whether url was ever pushed.
func (q *Queue) Seen(url string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, ok := q.seen[url]
	return ok
}

// Len returns the number of pending entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending)
}
