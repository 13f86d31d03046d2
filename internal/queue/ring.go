package queue

import "sync"

// Ring is a generic thread-safe bounded buffer that keeps the most recent
// items. Pushing into a full ring overwrites the oldest item.
type Ring[T any] struct {
	mu    sync.Mutex
	items []T
	start int
	size  int
}

// NewRing creates a ring holding at most capacity items.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push appends items, evicting the oldest once the ring is full.
func (r *Ring[T]) Push(items ...T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		idx := (r.start + r.size) % len(r.items)
		r.items[idx] = item
		if r.size < len(r.items) {
			r.size++
		} else {
			r.start = (r.start + 1) % len(r.items)
		}
	}
}

// Len returns the number of stored items.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Cap returns the maximum number of stored items.
func (r *Ring[T]) Cap() int {
	return len(r.items)
}

// Newest returns a copy of the stored items, most recent first.
func (r *Ring[T]) Newest() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(r.start+r.size-1-i)%len(r.items)]
	}
	return out
}

// Oldest returns a copy of the stored items in insertion order.
func (r *Ring[T]) Oldest() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(r.start+i)%len(r.items)]
	}
	return out
}

// Clear removes all items.
func (r *Ring[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.start, r.size = 0, 0
}
