// Package queue provides the write buffers the storage layer drains in
// batches.
package queue

import (
	"sync"
)

// Queue is a generic thread-safe FIFO buffer.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates a new empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
	}
}

// Push appends items to the queue.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// Requeue puts items back at the head of the queue, ahead of anything
// pushed since they were drained.
func (q *Queue[T]) Requeue(items ...T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	merged := make([]T, 0, len(items)+len(q.items))
	merged = append(merged, items...)
	q.items = append(merged, q.items...)
}

// Empty returns true if the queue has no items.
func (q *Queue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain removes and returns up to max items from the head of the queue.
// max <= 0 drains everything.
func (q *Queue[T]) Drain(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if max <= 0 || max >= len(q.items) {
		result := q.items
		q.items = make([]T, 0, cap(q.items))
		return result
	}
	result := make([]T, max)
	copy(result, q.items[:max])
	q.items = append(q.items[:0:0], q.items[max:]...)
	return result
}
