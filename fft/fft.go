// Package fft provides generic abstractions around fourier transformers.
package fft

import (
	"math/bits"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Plan holds a gonum FFT plan for a fixed transform size.
type Plan struct {
	size   int
	output []complex128
	fft    *fourier.FFT
}

// NewPlan returns a plan for real input of length size.
func NewPlan(size int) *Plan {
	return &Plan{
		size:   size,
		output: make([]complex128, size/2+1),
	}
}

// Size is the number of real values the plan transforms.
func (p *Plan) Size() int {
	return p.size
}

// Execute runs a forward transform of input. The returned slice holds the
// size/2+1 non-redundant coefficients and is reused by the next call.
func (p *Plan) Execute(input []float64) []complex128 {
	if p.fft == nil {
		p.fft = fourier.NewFFT(p.size)
	}

	return p.fft.Coefficients(p.output, input)
}

// NextPow2 returns the smallest power of two that is >= n.
func NextPow2(n int) int {
	if n <= 1 {
		return 1
	}

	return 1 << bits.Len(uint(n-1))
}
