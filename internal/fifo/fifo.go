// Package fifo provides an unbounded first-in-first-out queue.
//
// The queue performs no locking of its own. Callers that share a Queue
// across goroutines must provide their own synchronization; the dispatch
// package guards its queue with a single mutex/condition pair.
package fifo

// Queue is an unbounded FIFO backed by a growable ring buffer.
//
// The zero value is not usable; create instances with New.
type Queue[T any] struct {
	buf  []T
	head int
	tail int
	size int
}

const initialCapacity = 16

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{buf: make([]T, initialCapacity)}
}

// Enqueue appends an item at the tail of the queue.
func (q *Queue[T]) Enqueue(item T) {
	if q.size == len(q.buf) {
		q.grow()
	}
	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % len(q.buf)
	q.size++
}

// Dequeue removes and returns the item at the head of the queue.
// The second return value is false if the queue is empty.
func (q *Queue[T]) Dequeue() (T, bool) {
	var zero T
	if q.size == 0 {
		return zero, false
	}
	item := q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return item, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	return q.size
}

func (q *Queue[T]) grow() {
	next := make([]T, len(q.buf)*2)
	n := copy(next, q.buf[q.head:])
	copy(next[n:], q.buf[:q.head])
	q.buf = next
	q.head = 0
	q.tail = q.size
}
