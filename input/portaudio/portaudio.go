//go:build portaudio

package portaudio

import (
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/noriah/voxcap/input"
	"github.com/pkg/errors"
)

func init() {
	input.RegisterBackend("portaudio", &Backend{})
}

type Backend struct {
	initOnce sync.Once
	initErr  error
}

func (b *Backend) Init() error {
	b.initOnce.Do(func() {
		b.initErr = errors.Wrap(portaudio.Initialize(), "failed to initialize portaudio")
	})

	return b.initErr
}

func (b *Backend) Close() error {
	return portaudio.Terminate()
}

// Devices returns every device with at least one input channel.
func (b *Backend) Devices() ([]input.Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get devices")
	}

	var devices []input.Device
	for _, info := range infos {
		if info.MaxInputChannels > 0 {
			devices = append(devices, Device{info})
		}
	}

	return devices, nil
}

func (b *Backend) DefaultDevice() (input.Device, error) {
	info, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get default input device")
	}

	return Device{info}, nil
}

func (b *Backend) Start(cfg input.SessionConfig) (input.Session, error) {
	dv, ok := cfg.Device.(Device)
	if !ok {
		return nil, errors.Errorf("invalid device type %T", cfg.Device)
	}

	return NewSession(dv, cfg)
}

// Device is a PortAudio input device.
type Device struct {
	info *portaudio.DeviceInfo
}

func (d Device) String() string {
	return d.info.Name
}

// Session is an open mono 16-bit input stream.
type Session struct {
	stream *portaudio.Stream
	buffer []int16

	closeOnce sync.Once
	closeErr  error
}

func NewSession(dv Device, cfg input.SessionConfig) (*Session, error) {
	params := portaudio.LowLatencyParameters(dv.info, nil)
	params.Input.Channels = 1
	params.SampleRate = cfg.SampleRate
	params.FramesPerBuffer = cfg.SampleSize
	params.Flags = portaudio.ClipOff | portaudio.DitherOff

	s := &Session{
		buffer: make([]int16, cfg.SampleSize),
	}

	stream, err := portaudio.OpenStream(params, s.buffer)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open stream")
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, errors.Wrap(err, "failed to start stream")
	}

	s.stream = stream

	return s, nil
}

// Read blocks until a full buffer is available. Overflows are not fatal, the
// lost samples are simply gone.
func (s *Session) Read(dst []int16) (int, error) {
	if err := s.stream.Read(); err != nil && err != portaudio.InputOverflowed {
		return 0, errors.Wrap(err, "failed to read stream")
	}

	return copy(dst, s.buffer), nil
}

func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.stream.Stop()
		s.closeErr = errors.Wrap(s.stream.Close(), "failed to close stream")
	})

	return s.closeErr
}
