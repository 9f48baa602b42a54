// Package execread provides a shared struct that wraps around cmd.
package execread

import (
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/noriah/voxcap/input"
	"github.com/pkg/errors"
)

// Session is a session that reads little-endian 16-bit audio from a Cmd.
type Session struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser

	raw []byte

	closeOnce sync.Once
	closeErr  error
}

// Start runs argv and returns a session reading its stdout.
func Start(argv []string, cfg input.SessionConfig) (*Session, error) {
	if len(argv) < 1 {
		return nil, errors.New("argv has no arg0")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stderr = os.Stderr

	return StartCmd(cmd, cfg)
}

// StartCmd starts cmd and returns a session reading its stdout.
func StartCmd(cmd *exec.Cmd, cfg input.SessionConfig) (*Session, error) {
	o, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get stdout pipe")
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "failed to start "+cmd.Path)
	}

	return &Session{
		cmd:    cmd,
		stdout: o,
		raw:    make([]byte, cfg.SampleSize*input.SampleBytes),
	}, nil
}

// Read blocks until dst is filled from the process output.
func (s *Session) Read(dst []int16) (int, error) {
	if need := len(dst) * input.SampleBytes; len(s.raw) < need {
		s.raw = make([]byte, need)
	}

	n, err := input.ReadChunk(s.stdout, dst, s.raw)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, errors.Wrap(err, "failed to read samples")
	}

	return n, err
}

// Close kills the process and waits for it. It is safe to call more than
// once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}

		// Wait closes stdout, unblocking any pending Read.
		if err := s.cmd.Wait(); err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				s.closeErr = errors.Wrap(err, "failed to wait for "+s.cmd.Path)
			}
		}
	})

	return s.closeErr
}
