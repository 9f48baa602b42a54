package dsp

import (
	"math/cmplx"

	"github.com/noriah/voxcap/dsp/window"
	"github.com/noriah/voxcap/fft"
)

// SpectrumExtractor windows sample chunks and returns their magnitude
// spectrum.
//
// Plans are cached by transform size since a short final read changes the
// size. It is not safe for concurrent use.
type SpectrumExtractor struct {
	plans map[int]*fft.Plan
	input []float64
}

// NewSpectrumExtractor returns a new extractor.
func NewSpectrumExtractor() *SpectrumExtractor {
	return &SpectrumExtractor{
		plans: make(map[int]*fft.Plan),
	}
}

// FFTSize returns the transform size used for a chunk of n samples.
func FFTSize(n int) int {
	return fft.NextPow2(n)
}

// Extract returns FFTSize(len(samples))/2 magnitudes of the Hann windowed and
// zero padded samples.
func (se *SpectrumExtractor) Extract(samples []int16) ([]float64, error) {
	count := len(samples)
	if count == 0 {
		return nil, ErrEmptyChunk
	}

	size := FFTSize(count)
	mags := make([]float64, size/2)

	// a single sample has no window shape
	if count <= 1 {
		return mags, nil
	}

	if cap(se.input) < size {
		se.input = make([]float64, size)
	}

	input := se.input[:size]

	for idx, s := range samples {
		input[idx] = float64(s)
	}

	for idx := count; idx < size; idx++ {
		input[idx] = 0
	}

	window.Hann(input[:count])

	plan, ok := se.plans[size]
	if !ok {
		plan = fft.NewPlan(size)
		se.plans[size] = plan
	}

	coefs := plan.Execute(input)
	for idx := range mags {
		mags[idx] = cmplx.Abs(coefs[idx])
	}

	return mags, nil
}
