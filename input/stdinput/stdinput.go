// Package stdinput reads raw mono s16le audio from standard input.
//
//	arecord -q -f S16_LE -c 1 -r 44100 | voxcap -b stdin
package stdinput

import (
	"io"
	"os"
	"sync"

	"github.com/noriah/voxcap/input"
	"github.com/pkg/errors"
)

func init() {
	input.RegisterBackend("stdin", StdinBackend{})
}

type StdinBackend struct{}

func (b StdinBackend) Init() error {
	return nil
}

func (b StdinBackend) Close() error {
	return nil
}

func (b StdinBackend) Devices() ([]input.Device, error) {
	return []input.Device{StdInputDevice{}}, nil
}

func (b StdinBackend) DefaultDevice() (input.Device, error) {
	return StdInputDevice{}, nil
}

func (b StdinBackend) Start(cfg input.SessionConfig) (input.Session, error) {
	return NewSession(os.Stdin, cfg), nil
}

type StdInputDevice struct{}

func (d StdInputDevice) String() string {
	return "stdin"
}

// Session reads samples from any reader.
type Session struct {
	r   io.Reader
	raw []byte

	closeOnce sync.Once
}

// NewSession returns a session reading s16le from r. r is closed with the
// session if it is an io.Closer.
func NewSession(r io.Reader, cfg input.SessionConfig) *Session {
	return &Session{
		r:   r,
		raw: make([]byte, cfg.SampleSize*input.SampleBytes),
	}
}

func (s *Session) Read(dst []int16) (int, error) {
	if need := len(dst) * input.SampleBytes; len(s.raw) < need {
		s.raw = make([]byte, need)
	}

	n, err := input.ReadChunk(s.r, dst, s.raw)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, errors.Wrap(err, "failed to read stdin")
	}

	return n, err
}

func (s *Session) Close() error {
	var err error

	s.closeOnce.Do(func() {
		if c, ok := s.r.(io.Closer); ok {
			err = c.Close()
		}
	})

	return err
}
