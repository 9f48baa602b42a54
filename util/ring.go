package util

// Ring is a fixed capacity ring of values.
//
// the backing array is allocated once. head points at the oldest value and
// count is the logical length. when the ring is full a push overwrites the
// value at head and moves head forward, so the oldest value is always the one
// that gets dropped.
type Ring[T any] struct {
	pool []T

	head  int
	count int
}

// NewRing returns a new ring that holds at most size values.
func NewRing[T any](size int) *Ring[T] {
	if size < 1 {
		size = 1
	}

	return &Ring[T]{
		pool: make([]T, size),
	}
}

// Push adds value to the tail of the ring, evicting the oldest value if the
// ring is full.
func (r *Ring[T]) Push(value T) {
	tail := (r.head + r.count) % len(r.pool)
	r.pool[tail] = value

	if r.count == len(r.pool) {
		r.head = (r.head + 1) % len(r.pool)
		return
	}

	r.count++
}

// Snapshot returns the values in arrival order, oldest first.
func (r *Ring[T]) Snapshot() []T {
	out := make([]T, r.count)
	for idx := range out {
		out[idx] = r.pool[(r.head+idx)%len(r.pool)]
	}

	return out
}

// Each calls fn for every value, oldest first.
func (r *Ring[T]) Each(fn func(T)) {
	for idx := 0; idx < r.count; idx++ {
		fn(r.pool[(r.head+idx)%len(r.pool)])
	}
}

// Reset drops every value.
func (r *Ring[T]) Reset() {
	var zero T
	for idx := range r.pool {
		r.pool[idx] = zero
	}

	r.head = 0
	r.count = 0
}

// Len returns how many values are in the ring.
func (r *Ring[T]) Len() int {
	return r.count
}

// Cap returns the max number of values the ring holds.
func (r *Ring[T]) Cap() int {
	return len(r.pool)
}

// Full reports whether the next push will evict a value.
func (r *Ring[T]) Full() bool {
	return r.count == len(r.pool)
}
