package recorder

import (
	"bytes"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/noriah/voxcap/dsp"
	"github.com/noriah/voxcap/input"
	"github.com/noriah/voxcap/metrics"
	"github.com/noriah/voxcap/processor"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testChunkSize = 2048

var errClosed = errors.New("device closed")

func toneChunk(freq, amp float64) []int16 {
	chunk := make([]int16, testChunkSize)
	for idx := range chunk {
		chunk[idx] = int16(amp * math.Sin(2*math.Pi*freq*float64(idx)/dsp.DefaultSampleRate))
	}
	return chunk
}

// fakeDevice plays chunks in order. Once they run out it repeats the last
// chunk, blocks until closed or ends the stream, depending on its mode.
type fakeDevice struct {
	mu     sync.Mutex
	chunks [][]int16
	next   int
	repeat bool
	block  bool
	onRead func()

	closed  int
	closeCh chan struct{}
}

func newFakeDevice(chunks ...[]int16) *fakeDevice {
	return &fakeDevice{
		chunks:  chunks,
		closeCh: make(chan struct{}),
	}
}

func (d *fakeDevice) String() string { return "fake" }

func (d *fakeDevice) Read(dst []int16) (int, error) {
	if d.onRead != nil {
		d.onRead()
	}

	d.mu.Lock()

	if d.closed > 0 {
		d.mu.Unlock()
		return 0, errClosed
	}

	var chunk []int16
	switch {
	case d.next < len(d.chunks):
		chunk = d.chunks[d.next]
		d.next++
	case d.repeat && len(d.chunks) > 0:
		chunk = d.chunks[len(d.chunks)-1]
	}

	d.mu.Unlock()

	if chunk != nil {
		time.Sleep(time.Millisecond)
		return copy(dst, chunk), nil
	}

	if d.block {
		<-d.closeCh
		return 0, errClosed
	}

	return 0, io.EOF
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed++
	if d.closed == 1 {
		close(d.closeCh)
	}

	return nil
}

func (d *fakeDevice) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// fakeBackend hands out its devices in order.
type fakeBackend struct {
	mu      sync.Mutex
	devices []*fakeDevice
	started int
	err     error
}

func (b *fakeBackend) Init() error                          { return nil }
func (b *fakeBackend) Close() error                         { return nil }
func (b *fakeBackend) Devices() ([]input.Device, error)     { return nil, nil }
func (b *fakeBackend) DefaultDevice() (input.Device, error) { return nil, nil }

func (b *fakeBackend) Start(cfg input.SessionConfig) (input.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.err != nil {
		return nil, b.err
	}

	if b.started >= len(b.devices) {
		return nil, errors.New("no more devices")
	}

	dev := b.devices[b.started]
	b.started++

	return dev, nil
}

func (b *fakeBackend) startCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.started
}

type memSink struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	fail   bool
	closed int
}

func (s *memSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail {
		return 0, errors.New("disk full")
	}

	return s.buf.Write(p)
}

func (s *memSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed++
	return nil
}

func (s *memSink) bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.buf.Bytes()...)
}

func (s *memSink) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func newTestSession(t *testing.T, backend input.Backend, mod func(*Config)) *Session {
	t.Helper()

	cfg := Config{
		Backend:     backend,
		SampleSize:  testChunkSize,
		Processor:   processor.DefaultConfig(),
		StopTimeout: time.Second,
	}

	if mod != nil {
		mod(&cfg)
	}

	sess, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	return sess
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNewRequiresBackend(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected an error without a backend")
	}
}

func TestStopWhenIdle(t *testing.T) {
	sess := newTestSession(t, &fakeBackend{}, nil)

	sess.Stop()
	sess.Stop()

	if sess.State() != Idle {
		t.Errorf("expected idle, got %s", sess.State())
	}

	select {
	case <-sess.Done():
	default:
		t.Error("done channel should be closed while idle")
	}
}

func TestStartDeclinedWhenUnauthorized(t *testing.T) {
	backend := &fakeBackend{devices: []*fakeDevice{newFakeDevice()}}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	sess := newTestSession(t, backend, func(cfg *Config) {
		cfg.Authorizer = input.AuthorizerFunc(func() bool { return false })
		cfg.Metrics = m
	})

	err := sess.Start("", nil)
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}

	if sess.State() != Idle {
		t.Errorf("expected idle, got %s", sess.State())
	}

	if backend.startCount() != 0 {
		t.Error("device was opened without authorization")
	}

	if got := testutil.ToFloat64(m.SessionsDeclined); got != 1 {
		t.Errorf("expected one declined session, got %f", got)
	}
}

func TestStartDeclinedWhenDeviceFails(t *testing.T) {
	sess := newTestSession(t, &fakeBackend{err: errors.New("busy")}, nil)

	err := sess.Start("", nil)
	if !errors.Is(err, ErrDeclined) {
		t.Fatalf("expected ErrDeclined, got %v", err)
	}

	if sess.State() != Idle {
		t.Errorf("expected idle, got %s", sess.State())
	}
}

func TestRecordWritesAndPublishes(t *testing.T) {
	tone := toneChunk(580, 12000)

	dev := newFakeDevice(tone)
	dev.repeat = true

	sink := &memSink{}

	sess := newTestSession(t, &fakeBackend{devices: []*fakeDevice{dev}}, func(cfg *Config) {
		cfg.Opener = func(dest string) (io.WriteCloser, error) {
			if dest != "out.raw" {
				t.Errorf("unexpected destination %q", dest)
			}
			return sink, nil
		}
	})

	published := make(chan []float64, 1)
	publish := func(vec []float64) {
		select {
		case published <- vec:
		default:
		}
	}

	if err := sess.Start("out.raw", publish); err != nil {
		t.Fatal(err)
	}

	if sess.State() != Recording {
		t.Fatalf("expected recording, got %s", sess.State())
	}

	var vec []float64
	select {
	case vec = <-published:
	case <-time.After(5 * time.Second):
		t.Fatal("nothing was published")
	}

	if len(vec) != dsp.DefaultBinCount {
		t.Fatalf("expected %d magnitudes, got %d", dsp.DefaultBinCount, len(vec))
	}

	for idx, v := range vec {
		if v < 0 || v > 1 {
			t.Errorf("magnitude %d out of range: %f", idx, v)
		}
	}

	if sess.Volume() <= processor.DefaultVoicedThreshold {
		t.Errorf("expected a voiced volume, got %f", sess.Volume())
	}

	sess.Stop()

	if sess.State() != Idle {
		t.Errorf("expected idle, got %s", sess.State())
	}

	if sess.Duration() != 0 {
		t.Errorf("expected duration reset, got %s", sess.Duration())
	}

	if dev.closeCount() != 1 || sink.closeCount() != 1 {
		t.Errorf("expected device and sink closed once, got %d and %d",
			dev.closeCount(), sink.closeCount())
	}

	data := sink.bytes()
	chunkBytes := testChunkSize * input.SampleBytes

	if len(data) == 0 || len(data)%chunkBytes != 0 {
		t.Fatalf("expected whole chunks written, got %d bytes", len(data))
	}

	want := input.PutSamples(make([]byte, chunkBytes), tone)
	if !bytes.Equal(data[:chunkBytes], want) {
		t.Error("first chunk was not written as little-endian samples")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	dev := newFakeDevice(make([]int16, testChunkSize))
	dev.repeat = true

	sess := newTestSession(t, &fakeBackend{devices: []*fakeDevice{dev}}, nil)

	if err := sess.Start("", nil); err != nil {
		t.Fatal(err)
	}

	sess.Stop()
	sess.Stop()

	if got := dev.closeCount(); got != 1 {
		t.Errorf("expected device closed once, got %d", got)
	}

	if sess.State() != Idle {
		t.Errorf("expected idle, got %s", sess.State())
	}
}

func TestStartWhileRecordingReplacesSession(t *testing.T) {
	first := newFakeDevice(make([]int16, testChunkSize))
	first.repeat = true

	second := newFakeDevice(make([]int16, testChunkSize))
	second.repeat = true

	sess := newTestSession(t, &fakeBackend{devices: []*fakeDevice{first, second}}, nil)

	if err := sess.Start("", nil); err != nil {
		t.Fatal(err)
	}

	if err := sess.Start("", nil); err != nil {
		t.Fatal(err)
	}

	if got := first.closeCount(); got != 1 {
		t.Errorf("expected first device closed once, got %d", got)
	}

	if got := second.closeCount(); got != 0 {
		t.Errorf("second device closed while recording")
	}

	if sess.State() != Recording {
		t.Errorf("expected recording, got %s", sess.State())
	}

	sess.Stop()

	if got := second.closeCount(); got != 1 {
		t.Errorf("expected second device closed once, got %d", got)
	}
}

func TestWriteFailureKeepsCapturing(t *testing.T) {
	dev := newFakeDevice(toneChunk(580, 12000))
	dev.repeat = true

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	sess := newTestSession(t, &fakeBackend{devices: []*fakeDevice{dev}}, func(cfg *Config) {
		cfg.Metrics = m
		cfg.Opener = func(string) (io.WriteCloser, error) {
			return &memSink{fail: true}, nil
		}
	})

	if err := sess.Start("out.raw", nil); err != nil {
		t.Fatal(err)
	}
	defer sess.Stop()

	waitFor(t, "chunks after write failures", func() bool {
		return testutil.ToFloat64(m.WriteErrors) >= 5 && testutil.ToFloat64(m.ChunksRead) >= 5
	})

	if sess.State() != Recording {
		t.Errorf("write failures stopped the session: %s", sess.State())
	}

	if got := testutil.ToFloat64(m.BytesWritten); got != 0 {
		t.Errorf("expected nothing written, got %f bytes", got)
	}
}

func TestSinkOpenFailureStillRecords(t *testing.T) {
	dev := newFakeDevice(toneChunk(580, 12000))
	dev.repeat = true

	sess := newTestSession(t, &fakeBackend{devices: []*fakeDevice{dev}}, func(cfg *Config) {
		cfg.Opener = func(string) (io.WriteCloser, error) {
			return nil, errors.New("read-only file system")
		}
	})

	published := make(chan struct{}, 1)
	err := sess.Start("out.raw", func([]float64) {
		select {
		case published <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Stop()

	select {
	case <-published:
	case <-time.After(5 * time.Second):
		t.Fatal("nothing was published without a sink")
	}
}

func TestStopTimeoutReleasesDevice(t *testing.T) {
	dev := newFakeDevice()
	dev.block = true

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	sess := newTestSession(t, &fakeBackend{devices: []*fakeDevice{dev}}, func(cfg *Config) {
		cfg.StopTimeout = 20 * time.Millisecond
		cfg.Metrics = m
	})

	reading := make(chan struct{}, 1)
	dev.onRead = func() {
		select {
		case reading <- struct{}{}:
		default:
		}
	}

	if err := sess.Start("", nil); err != nil {
		t.Fatal(err)
	}

	// stop only once the loop is blocked inside a read
	select {
	case <-reading:
	case <-time.After(5 * time.Second):
		t.Fatal("capture loop never read")
	}

	start := time.Now()
	sess.Stop()

	if took := time.Since(start); took > time.Second {
		t.Errorf("stop took %s", took)
	}

	if got := dev.closeCount(); got != 1 {
		t.Errorf("expected device closed once, got %d", got)
	}

	if sess.State() != Idle {
		t.Errorf("expected idle, got %s", sess.State())
	}

	if got := testutil.ToFloat64(m.StopTimeouts); got != 1 {
		t.Errorf("expected one stop timeout, got %f", got)
	}
}

func TestEndOfStreamReturnsToIdle(t *testing.T) {
	dev := newFakeDevice(make([]int16, testChunkSize), make([]int16, testChunkSize))
	sink := &memSink{}

	sess := newTestSession(t, &fakeBackend{devices: []*fakeDevice{dev}}, func(cfg *Config) {
		cfg.Opener = func(string) (io.WriteCloser, error) { return sink, nil }
	})

	if err := sess.Start("out.raw", nil); err != nil {
		t.Fatal(err)
	}

	select {
	case <-sess.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("capture loop did not end with the stream")
	}

	waitFor(t, "idle", func() bool { return sess.State() == Idle })

	if got := len(sink.bytes()); got != 2*testChunkSize*input.SampleBytes {
		t.Errorf("expected two chunks written, got %d bytes", got)
	}

	if dev.closeCount() != 1 || sink.closeCount() != 1 {
		t.Errorf("expected device and sink closed once, got %d and %d",
			dev.closeCount(), sink.closeCount())
	}
}

func TestStopWaitsForPublishInFlight(t *testing.T) {
	dev := newFakeDevice(toneChunk(580, 12000))
	dev.repeat = true

	sess := newTestSession(t, &fakeBackend{devices: []*fakeDevice{dev}}, nil)

	entered := make(chan struct{}, 1)
	unblock := make(chan struct{})

	var mu sync.Mutex
	var publishes, afterStop int
	stopped := false

	publish := func([]float64) {
		select {
		case entered <- struct{}{}:
		default:
		}

		<-unblock

		mu.Lock()
		defer mu.Unlock()

		publishes++
		if stopped {
			afterStop++
		}
	}

	if err := sess.Start("", publish); err != nil {
		t.Fatal(err)
	}

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("nothing was published")
	}

	stopDone := make(chan struct{})
	go func() {
		sess.Stop()

		mu.Lock()
		stopped = true
		mu.Unlock()

		close(stopDone)
	}()

	select {
	case <-stopDone:
		t.Fatal("stop returned while a publish was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(unblock)

	select {
	case <-stopDone:
	case <-time.After(5 * time.Second):
		t.Fatal("stop did not return after the publish finished")
	}

	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if publishes == 0 {
		t.Error("the blocked publish never finished")
	}

	if afterStop != 0 {
		t.Errorf("%d publishes ran after stop returned", afterStop)
	}
}

// stepClock advances by step on every call.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func TestDurationTracksVoicedChunks(t *testing.T) {
	silence := make([]int16, testChunkSize)
	tone := toneChunk(580, 12000)

	dev := newFakeDevice(silence, silence, tone, silence)

	clock := &stepClock{now: time.Unix(1000, 0), step: 100 * time.Millisecond}

	sess := newTestSession(t, &fakeBackend{devices: []*fakeDevice{dev}}, func(cfg *Config) {
		cfg.Clock = clock.Now
	})

	// each read sees the state left by the previous chunk
	var seen []time.Duration
	dev.onRead = func() {
		seen = append(seen, sess.Duration())
	}

	if err := sess.Start("", nil); err != nil {
		t.Fatal(err)
	}

	<-sess.Done()

	want := []time.Duration{
		0,
		100 * time.Millisecond,
		200 * time.Millisecond,
		0,
		100 * time.Millisecond,
	}

	if len(seen) != len(want) {
		t.Fatalf("expected %d reads, got %v", len(want), seen)
	}

	for idx := range want {
		if seen[idx] != want[idx] {
			t.Errorf("read %d: expected duration %s, got %s", idx, want[idx], seen[idx])
		}
	}
}

func TestPublisherKeepsLatest(t *testing.T) {
	p := &publisher{slot: make(chan []float64, 1)}

	if p.offer([]float64{1}) {
		t.Error("first offer reported a drop")
	}

	if !p.offer([]float64{2}) {
		t.Error("second offer did not report a drop")
	}

	if got := <-p.slot; got[0] != 2 {
		t.Errorf("expected the latest vector, got %v", got)
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		Idle:      "idle",
		Recording: "recording",
		Stopping:  "stopping",
		State(9):  "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}
