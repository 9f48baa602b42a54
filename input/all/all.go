// Package all imports all backends implemented by the input package.
package all

import (
	_ "github.com/noriah/voxcap/input/ffmpeg"
	_ "github.com/noriah/voxcap/input/parec"
	_ "github.com/noriah/voxcap/input/portaudio"
	_ "github.com/noriah/voxcap/input/stdinput"
)
