// Package store holds the latest magnitude vector for whatever draws it.
package store

import "sync/atomic"

// Magnitudes is a last-value-wins holder of a fixed length vector. It is safe
// for concurrent use.
type Magnitudes struct {
	size  int
	value atomic.Pointer[[]float64]
}

// NewMagnitudes returns a store of size zeros.
func NewMagnitudes(size int) *Magnitudes {
	m := &Magnitudes{size: size}
	m.Reset()
	return m
}

// Size returns the vector length this store holds.
func (m *Magnitudes) Size() int {
	return m.size
}

// Post replaces the held vector. Vectors of the wrong length are dropped and
// Post returns false. The store keeps vec, callers must not modify it after.
func (m *Magnitudes) Post(vec []float64) bool {
	if len(vec) != m.size {
		return false
	}

	m.value.Store(&vec)
	return true
}

// Load returns the held vector. Callers must not modify it.
func (m *Magnitudes) Load() []float64 {
	return *m.value.Load()
}

// Reset goes back to all zeros.
func (m *Magnitudes) Reset() {
	zeros := make([]float64, m.size)
	m.value.Store(&zeros)
}
