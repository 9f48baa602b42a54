package ffmpeg

import (
	"fmt"

	"github.com/noriah/voxcap/input"
	"github.com/noriah/voxcap/input/common/execread"
)

type FFmpegBackend interface {
	InputArgs() []string
}

// Args returns the ffmpeg command line that captures mono s16le from b.
func Args(b FFmpegBackend, cfg input.SessionConfig) []string {
	args := []string{"ffmpeg", "-hide_banner", "-loglevel", "panic"}
	args = append(args, b.InputArgs()...)
	args = append(args,
		"-ar", fmt.Sprintf("%.0f", cfg.SampleRate),
		"-ac", "1",
		"-f", "s16le",
		"-",
	)

	return args
}

func NewSession(b FFmpegBackend, cfg input.SessionConfig) (*execread.Session, error) {
	return execread.Start(Args(b, cfg), cfg)
}
