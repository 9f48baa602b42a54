// Package recorder owns a capture device for the length of a recording. It
// reads chunks on a dedicated goroutine, turns each one into bar magnitudes
// and appends the raw samples to an output sink.
package recorder

import (
	"io"
	"log/slog"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/noriah/voxcap/input"
	"github.com/noriah/voxcap/metrics"
	"github.com/noriah/voxcap/processor"
	"github.com/pkg/errors"
)

// DefaultStopTimeout is how long Stop waits for the capture loop to exit.
const DefaultStopTimeout = time.Second

// DefaultSampleSize is the number of samples read per chunk.
const DefaultSampleSize = 2048

// ErrDeclined is returned by Start when capture is not allowed or the device
// cannot be opened.
var ErrDeclined = errors.New("capture declined")

// State is the lifecycle state of a Session.
type State int32

// Session states
const (
	Idle State = iota
	Recording
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Opener opens the output sink for a destination.
type Opener func(dest string) (io.WriteCloser, error)

// FileOpener creates or truncates the file at dest.
func FileOpener(dest string) (io.WriteCloser, error) {
	return os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
}

type Config struct {
	Backend     input.Backend    // backend the device is opened with
	Device      input.Device     // device to capture from
	SampleRate  float64          // samples per second
	SampleSize  int              // samples per chunk
	Authorizer  input.Authorizer // capture permission, nil allows all
	Opener      Opener           // output sink opener, nil opens files
	Processor   processor.Config // transform chain settings
	StopTimeout time.Duration    // bound on waiting for the capture loop
	Metrics     *metrics.Metrics // collectors, nil records nothing
	Logger      *slog.Logger     // nil uses slog.Default
	Clock       func() time.Time // nil uses time.Now
}

// Session is the capture session. Only one recording runs at a time; Start
// while recording stops the running one first.
//
// Start and Stop may be called from any goroutine. Volume, Duration and State
// are safe to read at any time.
type Session struct {
	cfg Config
	log *slog.Logger

	// mu serializes Start and Stop and guards cur.
	mu  sync.Mutex
	cur *run

	state    atomic.Int32
	volume   atomic.Uint64 // float64 bits
	duration atomic.Int64  // time.Duration
}

// run is one recording. The capture goroutine owns proc and the anchor; the
// controlling goroutine owns teardown.
type run struct {
	device input.Session
	sink   io.WriteCloser
	proc   *processor.Processor
	pub    *publisher

	stop atomic.Bool
	done chan struct{} // closed when the capture loop has exited

	releaseOnce sync.Once
}

// New returns an idle session.
func New(cfg Config) (*Session, error) {
	if cfg.Backend == nil {
		return nil, errors.New("no input backend")
	}

	if cfg.SampleSize <= 0 {
		cfg.SampleSize = DefaultSampleSize
	}

	if cfg.SampleRate <= 0 {
		cfg.SampleRate = cfg.Processor.SampleRate
	}

	if cfg.Authorizer == nil {
		cfg.Authorizer = input.AlwaysAuthorized
	}

	if cfg.Opener == nil {
		cfg.Opener = FileOpener
	}

	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Session{
		cfg: cfg,
		log: cfg.Logger.With(slog.String("component", "recorder")),
	}, nil
}

// State returns the current state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Volume returns the volume in decibels of the last chunk read.
func (s *Session) Volume() float64 {
	return math.Float64frombits(s.volume.Load())
}

// Duration returns the time since the last voiced chunk, or since the start
// of the recording if nothing was voiced yet. It is zero when idle.
func (s *Session) Duration() time.Duration {
	return time.Duration(s.duration.Load())
}

// Done returns a channel that is closed once the current capture loop has
// exited. It is already closed when idle.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur == nil {
		done := make(chan struct{})
		close(done)
		return done
	}

	return s.cur.done
}

// Start begins a recording that writes raw samples to dest and hands every
// magnitude vector to publish. An empty dest records without persisting.
//
// A running recording is stopped first. If capture is not authorized or the
// device does not open, Start returns an error wrapping ErrDeclined and the
// session stays idle.
func (s *Session) Start(dest string, publish PublishFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	if !s.cfg.Authorizer.Authorized() {
		s.cfg.Metrics.SessionDeclined()
		return errors.Wrap(ErrDeclined, "capture not authorized")
	}

	proc, err := processor.New(s.cfg.Processor)
	if err != nil {
		return errors.Wrap(err, "failed to create processor")
	}

	device, err := s.cfg.Backend.Start(input.SessionConfig{
		Device:     s.cfg.Device,
		SampleRate: s.cfg.SampleRate,
		SampleSize: s.cfg.SampleSize,
	})
	if err != nil {
		s.cfg.Metrics.SessionDeclined()
		return errors.Wrapf(ErrDeclined, "failed to open device: %v", err)
	}

	r := &run{
		device: device,
		sink:   s.openSink(dest),
		proc:   proc,
		pub:    newPublisher(publish),
		done:   make(chan struct{}),
	}

	s.volume.Store(math.Float64bits(0))
	s.duration.Store(0)

	s.cur = r
	s.state.Store(int32(Recording))

	go s.capture(r)

	s.cfg.Metrics.SessionStarted()
	s.log.Info("capture started",
		slog.String("device", deviceName(s.cfg.Device)),
		slog.String("dest", dest),
		slog.Int("sample_size", s.cfg.SampleSize))

	return nil
}

// Stop ends the recording. It is a no-op when idle.
//
// Stop waits up to the stop timeout for the capture loop, and again for a
// publish in flight. If the loop is
// still inside a device read when the timeout passes, the device and the sink
// are released anyway and the loop exits once its read fails. Until then the
// loop may still touch the released device; this favors a prompt stop over a
// clean join.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
}

func (s *Session) stopLocked() {
	r := s.cur
	if r == nil {
		return
	}

	s.state.Store(int32(Stopping))
	r.stop.Store(true)

	timer := time.NewTimer(s.cfg.StopTimeout)
	defer timer.Stop()

	timedOut := false

	select {
	case <-r.done:
	case <-timer.C:
		timedOut = true
		s.log.Warn("capture loop did not exit in time, releasing device anyway",
			slog.Duration("timeout", s.cfg.StopTimeout))
	}

	s.release(r)

	s.cur = nil
	s.duration.Store(0)
	s.state.Store(int32(Idle))

	s.cfg.Metrics.SessionStopped(timedOut)
	s.log.Info("capture stopped")
}

// finish tears down r after its loop ended on its own.
func (s *Session) finish(r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cur == r {
		s.stopLocked()
	}
}

// release closes the publisher, the device and the sink of r exactly once.
// It waits up to the stop timeout for a publish in flight to return, so
// nothing is published once Stop has returned.
func (s *Session) release(r *run) {
	r.releaseOnce.Do(func() {
		r.pub.stop()

		timer := time.NewTimer(s.cfg.StopTimeout)
		defer timer.Stop()

		select {
		case <-r.pub.done:
		case <-timer.C:
			s.log.Warn("publish did not return in time",
				slog.Duration("timeout", s.cfg.StopTimeout))
		}

		if err := r.device.Close(); err != nil {
			s.log.Warn("failed to close device", slog.String("error", err.Error()))
		}

		if r.sink != nil {
			if err := r.sink.Close(); err != nil {
				s.log.Warn("failed to close output", slog.String("error", err.Error()))
			}
		}
	})
}

func (s *Session) openSink(dest string) io.WriteCloser {
	if dest == "" {
		return nil
	}

	sink, err := s.cfg.Opener(dest)
	if err != nil {
		// persistence is best effort, keep capturing for the visualizer
		s.log.Warn("failed to open output, recording without it",
			slog.String("dest", dest),
			slog.String("error", err.Error()))
		return nil
	}

	return sink
}

func deviceName(d input.Device) string {
	if d == nil {
		return "default"
	}
	return d.String()
}
