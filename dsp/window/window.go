// Package window provides the window applied to a chunk before its fft.
//
// See https://wikipedia.org/wiki/Window_function
package window

import (
	"math"

	dspwindow "github.com/mjibson/go-dsp/window"
)

// Hann modifies the buffer to a symmetric Hann window.
//
//	w(i) = 0.5 - 0.5 cos(2 pi i / (L - 1))
//
// both ends of the buffer go to zero. a buffer of one value is left alone.
func Hann(buf []float64) {
	dspwindow.Apply(buf, dspwindow.Hann)
}

// HannCoefficient returns the symmetric Hann weight of index i for a window
// of size values. sizes below 2 have no shape and return 1.
func HannCoefficient(i, size int) float64 {
	if size < 2 {
		return 1
	}

	return 0.5 - 0.5*math.Cos(2.0*math.Pi*float64(i)/float64(size-1))
}
