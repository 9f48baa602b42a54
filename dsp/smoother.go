package dsp

// Smoother blends each vector with the one it returned last.
//
// It is not safe for concurrent use. The goroutine that publishes vectors
// owns it.
type Smoother struct {
	values []float64 // last output, used for smoothing
}

// NewSmoother returns a smoother with no history.
func NewSmoother() *Smoother {
	return &Smoother{}
}

// Smooth returns (current + previous) / 2 and keeps the result as the next
// previous. With no previous vector the current vector passes through.
func (sm *Smoother) Smooth(current []float64) []float64 {
	out := make([]float64, len(current))

	if len(sm.values) != len(current) {
		copy(out, current)
		sm.values = out
		return out
	}

	for idx, v := range current {
		out[idx] = (v + sm.values[idx]) / 2.0
	}

	sm.values = out

	return out
}

// Last returns the last vector handed out, or nil.
func (sm *Smoother) Last() []float64 {
	return sm.values
}

// Reset forgets the previous vector.
func (sm *Smoother) Reset() {
	sm.values = nil
}
