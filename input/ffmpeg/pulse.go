package ffmpeg

import (
	"github.com/noriah/voxcap/input"
	"github.com/noriah/voxcap/input/parec"
	"github.com/pkg/errors"
)

func init() {
	input.RegisterBackend("ffmpeg-pulse", Pulse{})
}

// Pulse is the pulse input for FFmpeg. It shares device listing with parec.
type Pulse struct {
	parec.Backend
}

func (p Pulse) Start(cfg input.SessionConfig) (input.Session, error) {
	dv, ok := cfg.Device.(parec.PulseDevice)
	if !ok {
		return nil, errors.Errorf("invalid device type %T", cfg.Device)
	}

	return NewSession(dv, cfg)
}
