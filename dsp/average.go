package dsp

import (
	"github.com/noriah/voxcap/util"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// DefaultAverageDepth is how many vectors are averaged together.
const DefaultAverageDepth = 5

// AverageBuffer keeps the most recent magnitude vectors and averages them.
//
// It is not safe for concurrent use. A capture goroutine owns it.
type AverageBuffer struct {
	ring   *util.Ring[[]float64]
	length int
}

// NewAverageBuffer returns a buffer holding at most depth vectors.
func NewAverageBuffer(depth int) *AverageBuffer {
	if depth < 1 {
		depth = DefaultAverageDepth
	}

	return &AverageBuffer{
		ring: util.NewRing[[]float64](depth),
	}
}

// Push adds vec as the newest vector. The oldest vector is dropped if the
// buffer is full. Every vector must have the same non-zero length.
func (ab *AverageBuffer) Push(vec []float64) error {
	if len(vec) == 0 {
		return errors.Wrap(ErrLengthMismatch, "zero length vector")
	}

	if ab.ring.Len() > 0 && len(vec) != ab.length {
		return errors.Wrapf(ErrLengthMismatch, "got %d, holding %d", len(vec), ab.length)
	}

	ab.length = len(vec)
	ab.ring.Push(vec)

	return nil
}

// Snapshot returns the held vectors, oldest first.
func (ab *AverageBuffer) Snapshot() [][]float64 {
	return ab.ring.Snapshot()
}

// Len returns how many vectors are held.
func (ab *AverageBuffer) Len() int {
	return ab.ring.Len()
}

// Cap returns the depth of the buffer.
func (ab *AverageBuffer) Cap() int {
	return ab.ring.Cap()
}

// Mean returns the element-wise mean of the held vectors. An empty buffer has
// an empty mean.
func (ab *AverageBuffer) Mean() []float64 {
	count := ab.ring.Len()
	if count == 0 {
		return []float64{}
	}

	sums := make([]float64, ab.length)
	ab.ring.Each(func(vec []float64) {
		floats.Add(sums, vec)
	})

	floats.Scale(1.0/float64(count), sums)

	return sums
}

// Reset drops every vector.
func (ab *AverageBuffer) Reset() {
	ab.ring.Reset()
	ab.length = 0
}
