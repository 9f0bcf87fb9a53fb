// Package ring provides a generic thread-safe ring buffer with fixed
// capacity and FIFO eviction. It backs every sample history in the session
// engine: raw samples, position/orientation trails and frame intervals.
package ring

import "sync"

// Buffer is a bounded FIFO buffer. Capacity is fixed at construction and the
// buffer never grows; when full, a push evicts the oldest entry. Appends are
// O(1) and insertion order is preserved.
type Buffer[T any] struct {
	mu    sync.Mutex
	items []T
	head  int // index of the oldest item
	size  int
}

// New creates an empty buffer with the given capacity. Panics if capacity
// is not positive, since a zero-capacity history is always a caller bug.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Push appends an item, evicting the oldest if the buffer is full.
func (b *Buffer[T]) Push(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tail := (b.head + b.size) % len(b.items)
	b.items[tail] = item
	if b.size < len(b.items) {
		b.size++
	} else {
		b.head = (b.head + 1) % len(b.items)
	}
}

// Len returns the number of items currently buffered.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the fixed capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.items)
}

// Snapshot returns a copy of the buffered items in insertion order, oldest
// first. The copy is safe to read while the buffer keeps mutating.
func (b *Buffer[T]) Snapshot() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]T, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.items[(b.head+i)%len(b.items)]
	}
	return out
}

// Tail returns a copy of the most recent n items in insertion order. If fewer
// than n items are buffered, all of them are returned.
func (b *Buffer[T]) Tail(n int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n > b.size {
		n = b.size
	}
	out := make([]T, n)
	start := b.size - n
	for i := 0; i < n; i++ {
		out[i] = b.items[(b.head+start+i)%len(b.items)]
	}
	return out
}

// Last returns the most recently pushed item, or false if the buffer is
// empty.
func (b *Buffer[T]) Last() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == 0 {
		var zero T
		return zero, false
	}
	return b.items[(b.head+b.size-1)%len(b.items)], true
}

// First returns the oldest buffered item, or false if the buffer is empty.
func (b *Buffer[T]) First() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == 0 {
		var zero T
		return zero, false
	}
	return b.items[b.head], true
}

// Clear removes all items. Capacity is unchanged.
func (b *Buffer[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.size = 0
}
