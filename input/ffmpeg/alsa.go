package ffmpeg

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/noriah/voxcap/input"
	"github.com/pkg/errors"
)

func init() {
	input.RegisterBackend("ffmpeg-alsa", ALSA{})
}

// asoundPCM lists the pcm devices of every card.
const asoundPCM = "/proc/asound/pcm"

type ALSA struct{}

func (p ALSA) Init() error {
	return nil
}

func (p ALSA) Close() error {
	return nil
}

// Devices returns the ALSA pcm devices that can capture.
func (p ALSA) Devices() ([]input.Device, error) {
	f, err := os.Open(asoundPCM)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open pcm")
	}
	defer f.Close()

	return parseCaptureDevices(f)
}

func (p ALSA) DefaultDevice() (input.Device, error) {
	return ALSADevice("default"), nil
}

func (p ALSA) Start(cfg input.SessionConfig) (input.Session, error) {
	dv, ok := cfg.Device.(ALSADevice)
	if !ok {
		return nil, errors.Errorf("invalid device type %T", cfg.Device)
	}

	return NewSession(dv, cfg)
}

// parseCaptureDevices reads lines like
//
//	00-00: ALC892 Analog : ALC892 Analog : playback 1 : capture 1
//
// and keeps the ones with a capture stream.
func parseCaptureDevices(r io.Reader) ([]input.Device, error) {
	var devices []input.Device

	var scanner = bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, "capture") {
			continue
		}

		prefix := strings.Split(line, ":")[0]

		d, err := ParseALSADevice(prefix)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse device %q", prefix)
		}

		devices = append(devices, d)
	}

	return devices, errors.Wrap(scanner.Err(), "failed to scan pcm list")
}

// ALSADevice is an ALSA pcm name such as hw:0,0.
type ALSADevice string

// ParseALSADevice parses %d-%d into hw:%d,%d
func ParseALSADevice(hwString string) (ALSADevice, error) {
	nparts := strings.Split(strings.TrimSpace(hwString), "-")
	alsadv := "hw"

	if len(nparts) == 0 || len(nparts) > 2 {
		return "", errors.New("mismatch alsa format")
	}

	for i, part := range nparts {
		// Trim prefixed zeros, keeping a lone zero.
		if part = strings.TrimLeft(part, "0"); part == "" {
			part = "0"
		}

		switch i {
		case 0:
			alsadv += ":" + part
		case 1:
			alsadv += "," + part
		}
	}

	return ALSADevice(alsadv), nil
}

func (d ALSADevice) InputArgs() []string {
	return []string{"-f", "alsa", "-i", string(d)}
}

func (d ALSADevice) String() string {
	return string(d)
}
