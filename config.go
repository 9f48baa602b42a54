package voxcap

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/noriah/voxcap/dsp"
	"github.com/noriah/voxcap/input"
	"github.com/noriah/voxcap/processor"
	"github.com/noriah/voxcap/recorder"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

// MaxSampleSize is the largest chunk a session reads.
const MaxSampleSize = 1 << 16

// ErrInvalidConfig is wrapped by every error Validate returns.
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	// The name of the backend from the input package
	Backend string `yaml:"backend"`
	// The name of the device to pull data from
	Device string `yaml:"device"`
	// The rate that samples are read
	SampleRate float64 `yaml:"sample_rate"`
	// The number of samples per chunk
	SampleSize int `yaml:"sample_size"`
	// The number of magnitudes published per chunk
	Bins int `yaml:"bins"`
	// The number of chunks averaged over time
	AverageDepth int `yaml:"average_depth"`
	// The binned frequency range
	LowFreq  float64 `yaml:"low_freq"`
	HighFreq float64 `yaml:"high_freq"`
	// Decibels a chunk needs to count as voiced
	VoicedThreshold float64 `yaml:"voiced_threshold"`
	// Noise gate floor multiplier and pass margin
	GateThreshold float64 `yaml:"gate_threshold"`
	GateMargin    float64 `yaml:"gate_margin"`
	// Gate the binned vector instead of the full spectrum
	GateBins bool `yaml:"gate_bins"`
	// Where raw samples are written, empty to not persist
	Output string `yaml:"output"`
	// How long stopping waits for the capture loop
	StopTimeout time.Duration `yaml:"stop_timeout"`
	// The number of times per second to draw, 0 draws on every chunk
	FrameRate int `yaml:"frame_rate"`
	// Address to serve metrics on, empty to not serve them
	MetricsAddr string `yaml:"metrics_addr"`

	// Function to call when setting up the pipeline
	SetupFunc SetupFunc `yaml:"-"`
	// Function to call when starting the pipeline
	StartFunc StartFunc `yaml:"-"`
	// Function to call when cleaning up the pipeline
	CleanupFunc CleanupFunc `yaml:"-"`
	// Where to send the magnitudes
	Display Output `yaml:"-"`
	// Decides if capture may start, nil always allows it
	Authorizer input.Authorizer `yaml:"-"`
	// Sink opener, nil creates files
	Opener recorder.Opener `yaml:"-"`
	// Registry for the metrics, nil uses a private one
	Registry *prometheus.Registry `yaml:"-"`
	// Logger for the pipeline, nil uses slog.Default
	Logger *slog.Logger `yaml:"-"`
}

// SetupFunc is called before capture starts.
type SetupFunc func() error

// StartFunc is called with the root context and may derive a new one. Run
// stops when the returned context is done.
type StartFunc func(context.Context) (context.Context, error)

// CleanupFunc is called after capture has stopped.
type CleanupFunc func() error

// NewZeroConfig returns the default config.
func NewZeroConfig() Config {
	return Config{
		SampleRate:      dsp.DefaultSampleRate,
		SampleSize:      recorder.DefaultSampleSize,
		Bins:            dsp.DefaultBinCount,
		AverageDepth:    dsp.DefaultAverageDepth,
		LowFreq:         dsp.DefaultLowFreq,
		HighFreq:        dsp.DefaultHighFreq,
		VoicedThreshold: processor.DefaultVoicedThreshold,
		GateThreshold:   dsp.DefaultGateThreshold,
		GateMargin:      dsp.DefaultGateMargin,
		StopTimeout:     recorder.DefaultStopTimeout,
		FrameRate:       0,
	}
}

// LoadConfig reads a YAML config from path. Fields missing from the file keep
// their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := NewZeroConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to read config")
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config %s", path)
	}

	return cfg, nil
}

func (cfg *Config) Validate() error {
	switch {
	case cfg.SampleSize < 4:
		return errors.Wrap(ErrInvalidConfig, "sample size too small (4+ required)")

	case cfg.SampleSize > MaxSampleSize:
		return errors.Wrapf(ErrInvalidConfig, "sample size too large (%d max)", MaxSampleSize)

	case cfg.SampleRate < float64(cfg.SampleSize):
		return errors.Wrap(ErrInvalidConfig, "sample rate lower than sample size")

	case cfg.Bins < 1:
		return errors.Wrap(ErrInvalidConfig, "too few bins (1 min)")

	case cfg.AverageDepth < 1:
		return errors.Wrap(ErrInvalidConfig, "average depth too small (1 min)")
	}

	switch {
	case cfg.LowFreq <= 0:
		return errors.Wrap(ErrInvalidConfig, "low frequency must be positive")

	case cfg.LowFreq >= cfg.HighFreq:
		return errors.Wrap(ErrInvalidConfig, "low frequency not below high frequency")

	case cfg.HighFreq > cfg.SampleRate/2:
		return errors.Wrapf(ErrInvalidConfig, "high frequency above nyquist (%.0f)", cfg.SampleRate/2)
	}

	switch {
	case cfg.GateThreshold < 0 || cfg.GateMargin < 0:
		return errors.Wrap(ErrInvalidConfig, "negative noise gate settings")

	case cfg.StopTimeout < 0:
		return errors.Wrap(ErrInvalidConfig, "negative stop timeout")

	case cfg.FrameRate < 0:
		return errors.Wrap(ErrInvalidConfig, "negative frame rate")
	}

	return nil
}
