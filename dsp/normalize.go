package dsp

import "gonum.org/v1/gonum/floats"

// Normalize rescales vec to [0, 1]. A flat or empty vector has no range and
// becomes all zeros.
func Normalize(vec []float64) []float64 {
	out := make([]float64, len(vec))
	if len(vec) == 0 {
		return out
	}

	lo, hi := floats.Min(vec), floats.Max(vec)
	span := hi - lo

	if span == 0 || isBad(span) {
		return out
	}

	for idx, v := range vec {
		out[idx] = (v - lo) / span
	}

	return out
}
