package dsp

import "math"

// MinDecibels is the floor of Volume. Silence and near silence land here
// instead of at -Inf.
const MinDecibels = 0.0

// Volume returns the power of samples in decibels relative to one unit of
// 16-bit amplitude.
//
//	10 * log10(mean(s^2))
func Volume(samples []int16) float64 {
	if len(samples) == 0 {
		return MinDecibels
	}

	sum := 0.0
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}

	mean := sum / float64(len(samples))
	if mean <= 0 {
		return MinDecibels
	}

	return math.Max(MinDecibels, 10*math.Log10(mean))
}
