package dsp

import "gonum.org/v1/gonum/floats"

// Noise gate defaults.
const (
	DefaultGateThreshold = 10.0
	DefaultGateMargin    = 1.2
)

// NoiseGate zeroes the values of a vector that do not clear a floor derived
// from the vector itself.
type NoiseGate struct {
	Threshold float64 // multiplier applied to the mean to get the floor
	Margin    float64 // extra headroom a value must clear above the floor
}

// NewNoiseGate returns a gate with the default threshold and margin.
func NewNoiseGate() NoiseGate {
	return NoiseGate{
		Threshold: DefaultGateThreshold,
		Margin:    DefaultGateMargin,
	}
}

// Floor returns mean(vec) * Threshold.
func (ng NoiseGate) Floor(vec []float64) float64 {
	if len(vec) == 0 {
		return 0
	}

	return (floats.Sum(vec) / float64(len(vec))) * ng.Threshold
}

// Apply returns a copy of vec with every value at or below Floor * Margin
// set to zero.
func (ng NoiseGate) Apply(vec []float64) []float64 {
	out := make([]float64, len(vec))
	cut := ng.Floor(vec) * ng.Margin

	for idx, v := range vec {
		if v > cut {
			out[idx] = v
		}
	}

	return out
}
