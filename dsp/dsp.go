// Package dsp provides the transforms that turn 16-bit audio chunks into a
// short vector of bar magnitudes.
//
// Every transform returns a new vector and leaves its input alone.
//
// Some notes:
//
// https://dlbeer.co.nz/articles/fftvis.html
// https://stackoverflow.com/questions/3694918/how-to-extract-frequency-associated-with-fft-values-in-python
//   - https://stackoverflow.com/a/27191172
package dsp

import "math"

// isBad reports NaN or +-Inf.
func isBad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// Sanitize replaces NaN and infinite values in vec with zero.
func Sanitize(vec []float64) []float64 {
	for idx, v := range vec {
		if isBad(v) {
			vec[idx] = 0
		}
	}

	return vec
}
