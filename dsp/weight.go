package dsp

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// GaussianKernel returns size weights of a gaussian centered on size/2 with a
// spread of (size/4)/1.5. The weights sum to one.
func GaussianKernel(size int) []float64 {
	kernel := make([]float64, size)
	if size == 0 {
		return kernel
	}

	mid := float64(size) / 2.0
	spread := (float64(size) / 4.0) / 1.5
	denom := 2 * spread * spread

	for idx := range kernel {
		d := float64(idx) - mid
		kernel[idx] = math.Exp(-(d * d) / denom)
	}

	floats.Scale(1.0/floats.Sum(kernel), kernel)

	return kernel
}

// Weight pulls the energy of vec towards the center bins and scales it by the
// volume of the chunk.
//
//	out[i] = vec[i] * kernel[i] * volume / 2
func Weight(vec []float64, volume float64) []float64 {
	out := GaussianKernel(len(vec))

	floats.Mul(out, vec)
	floats.Scale(volume/2.0, out)

	return out
}
