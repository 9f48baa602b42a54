// Package processor runs the per chunk transform chain that turns raw 16-bit
// samples into bar magnitudes.
package processor

import (
	"github.com/noriah/voxcap/dsp"
	"github.com/pkg/errors"
)

// DefaultVoicedThreshold is the volume in decibels a chunk must exceed to be
// treated as sound instead of background noise.
const DefaultVoicedThreshold = 50.0

// GateStage picks where the noise gate runs in the chain.
type GateStage int

// Gate stages
const (
	// GateSpectrum gates the full fft spectrum before it is binned.
	GateSpectrum GateStage = iota
	// GateBins gates the binned vector. With few bins the floor is rarely
	// cleared, since no value can exceed len(vec) times the mean.
	GateBins
)

type Config struct {
	SampleRate      float64       // rate at which samples are read
	Bins            int           // number of output magnitudes
	AverageDepth    int           // number of vectors averaged over time
	LowFreq         float64       // low end of the binned spectrum
	HighFreq        float64       // high end of the binned spectrum
	VoicedThreshold float64       // decibels needed to run the spectrum
	Gate            dsp.NoiseGate // per chunk noise gate
	GateStage       GateStage     // where the gate runs
}

// DefaultConfig returns the tuned voice defaults.
func DefaultConfig() Config {
	return Config{
		SampleRate:      dsp.DefaultSampleRate,
		Bins:            dsp.DefaultBinCount,
		AverageDepth:    dsp.DefaultAverageDepth,
		LowFreq:         dsp.DefaultLowFreq,
		HighFreq:        dsp.DefaultHighFreq,
		VoicedThreshold: DefaultVoicedThreshold,
		Gate:            dsp.NewNoiseGate(),
		GateStage:       GateSpectrum,
	}
}

// Frame is the result of processing one chunk.
type Frame struct {
	Volume     float64   // chunk volume in decibels
	Voiced     bool      // volume was above the voiced threshold
	Magnitudes []float64 // smoothed bar magnitudes in [0, 1]
}

// Processor holds the state carried between chunks: the averaging buffer and
// the last vector handed out.
//
// It is not safe for concurrent use. A capture goroutine owns it.
type Processor struct {
	cfg Config

	extractor *dsp.SpectrumExtractor
	binner    *dsp.FrequencyBinner
	average   *dsp.AverageBuffer
	smoother  *dsp.Smoother
}

// New returns a processor for cfg.
func New(cfg Config) (*Processor, error) {
	binner, err := dsp.NewFrequencyBinner(dsp.BinnerConfig{
		SampleRate: cfg.SampleRate,
		LowFreq:    cfg.LowFreq,
		HighFreq:   cfg.HighFreq,
		Bins:       cfg.Bins,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create binner")
	}

	return &Processor{
		cfg:       cfg,
		extractor: dsp.NewSpectrumExtractor(),
		binner:    binner,
		average:   dsp.NewAverageBuffer(cfg.AverageDepth),
		smoother:  dsp.NewSmoother(),
	}, nil
}

// Bins returns the length of every vector this processor returns.
func (p *Processor) Bins() int {
	return p.cfg.Bins
}

// Process runs one chunk through the chain.
//
// Voiced chunks go through the spectrum, gate and binner. Quiet chunks add a
// zero vector so the average decays instead of freezing on the last sound.
func (p *Processor) Process(chunk []int16) (Frame, error) {
	if len(chunk) == 0 {
		return Frame{}, dsp.ErrEmptyChunk
	}

	frame := Frame{Volume: dsp.Volume(chunk)}
	frame.Voiced = frame.Volume > p.cfg.VoicedThreshold

	gated, err := p.analyze(chunk, frame.Voiced)
	if err != nil {
		return frame, err
	}

	if err := p.average.Push(gated); err != nil {
		return frame, errors.Wrap(err, "failed to buffer magnitudes")
	}

	weighted := dsp.Sanitize(dsp.Weight(p.average.Mean(), frame.Volume))

	frame.Magnitudes = p.smoother.Smooth(dsp.Normalize(weighted))

	return frame, nil
}

func (p *Processor) analyze(chunk []int16, voiced bool) ([]float64, error) {
	if !voiced {
		return make([]float64, p.cfg.Bins), nil
	}

	spectrum, err := p.extractor.Extract(chunk)
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract spectrum")
	}

	size := dsp.FFTSize(len(chunk))

	if p.cfg.GateStage == GateBins {
		return p.cfg.Gate.Apply(p.binner.Bin(spectrum, size)), nil
	}

	return p.binner.Bin(p.cfg.Gate.Apply(spectrum), size), nil
}

// Last returns the last vector returned by Process, or nil.
func (p *Processor) Last() []float64 {
	return p.smoother.Last()
}

// Reset drops the averaged history and the last vector.
func (p *Processor) Reset() {
	p.average.Reset()
	p.smoother.Reset()
}
