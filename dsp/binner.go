package dsp

import (
	"math"

	"github.com/pkg/errors"
)

// Binner defaults. The range is narrow on purpose, it covers the body of a
// speaking voice.
const (
	DefaultSampleRate = 44100.0
	DefaultLowFreq    = 400.0
	DefaultHighFreq   = 800.0
	DefaultBinCount   = 8
)

type BinnerConfig struct {
	SampleRate float64 // audio sample rate
	LowFreq    float64 // lowest frequency of the first bin
	HighFreq   float64 // highest frequency of the last bin
	Bins       int     // number of output bins
}

// FrequencyBinner folds a magnitude spectrum into a small number of bins
// spread on a log10 frequency scale.
type FrequencyBinner struct {
	cfg    BinnerConfig
	logMin float64
	logCF  float64 // log width of one bin
}

// NewFrequencyBinner returns a binner for cfg.
func NewFrequencyBinner(cfg BinnerConfig) (*FrequencyBinner, error) {
	switch {
	case cfg.Bins < 1:
		return nil, errors.Errorf("bin count %d too small (1 min)", cfg.Bins)
	case cfg.SampleRate <= 0:
		return nil, errors.Errorf("invalid sample rate %f", cfg.SampleRate)
	case cfg.LowFreq <= 0 || cfg.LowFreq >= cfg.HighFreq:
		return nil, errors.Errorf("invalid frequency range [%f, %f]", cfg.LowFreq, cfg.HighFreq)
	}

	logMin := math.Log10(cfg.LowFreq)
	logMax := math.Log10(cfg.HighFreq)

	return &FrequencyBinner{
		cfg:    cfg,
		logMin: logMin,
		logCF:  (logMax - logMin) / float64(cfg.Bins),
	}, nil
}

// Bins returns the number of output bins.
func (fb *FrequencyBinner) Bins() int {
	return fb.cfg.Bins
}

// Range returns the frequency range in hz covered by bin idx.
func (fb *FrequencyBinner) Range(idx int) (float64, float64) {
	lo := math.Pow(10.0, fb.logMin+float64(idx)*fb.logCF)
	hi := math.Pow(10.0, fb.logMin+float64(idx+1)*fb.logCF)
	return lo, hi
}

// Cuts returns the [start, end) fft indices feeding bin idx for an fft of
// size fftSize.
func (fb *FrequencyBinner) Cuts(idx, fftSize int) (int, int) {
	lo, hi := fb.Range(idx)
	return fb.freqToIdx(lo, fftSize), fb.freqToIdx(hi, fftSize)
}

// Bin averages spectrum into the output bins. spectrum holds fftSize/2
// magnitudes. A bin with no spectrum values in range is zero.
func (fb *FrequencyBinner) Bin(spectrum []float64, fftSize int) []float64 {
	out := make([]float64, fb.cfg.Bins)

	for idx := range out {
		start, end := fb.Cuts(idx, fftSize)

		sum := 0.0
		count := 0
		for xF := start; xF < end && xF < len(spectrum); xF++ {
			if xF < 0 {
				continue
			}
			sum += spectrum[xF]
			count++
		}

		if count > 0 {
			out[idx] = sum / float64(count)
		}
	}

	return out
}

// freqToIdx truncates the frequency to whole hz before scaling to an index.
func (fb *FrequencyBinner) freqToIdx(freq float64, fftSize int) int {
	return (int(freq) * fftSize) / int(fb.cfg.SampleRate)
}
