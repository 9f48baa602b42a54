package voxcap

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/noriah/voxcap/input"
	"github.com/noriah/voxcap/input/stdinput"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// bufferBackend plays a fixed buffer of samples once.
type bufferBackend struct {
	data []byte
}

type bufferDevice struct{}

func (bufferDevice) String() string { return "buffer" }

func (b *bufferBackend) Init() error                          { return nil }
func (b *bufferBackend) Close() error                         { return nil }
func (b *bufferBackend) Devices() ([]input.Device, error)     { return []input.Device{bufferDevice{}}, nil }
func (b *bufferBackend) DefaultDevice() (input.Device, error) { return bufferDevice{}, nil }

func (b *bufferBackend) Start(cfg input.SessionConfig) (input.Session, error) {
	return stdinput.NewSession(bytes.NewReader(b.data), cfg), nil
}

var testBackend = &bufferBackend{}

func init() {
	input.RegisterBackend("voxcap-test", testBackend)
}

type recordingOutput struct {
	mu    sync.Mutex
	draws [][]float64
}

func (o *recordingOutput) Draw(mags []float64, status Status) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.draws = append(o.draws, append([]float64(nil), mags...))
	return nil
}

func TestRunRecordsUntilStreamEnds(t *testing.T) {
	const chunks = 6

	samples := make([]int16, chunks*2048)
	for idx := range samples {
		samples[idx] = int16(12000 * math.Sin(2*math.Pi*580*float64(idx)/44100))
	}

	testBackend.data = input.PutSamples(make([]byte, len(samples)*input.SampleBytes), samples)

	dest := filepath.Join(t.TempDir(), "voice.raw")
	out := &recordingOutput{}
	reg := prometheus.NewRegistry()

	var setup, cleanup bool

	cfg := NewZeroConfig()
	cfg.Backend = "voxcap-test"
	cfg.Output = dest
	cfg.Display = out
	cfg.Registry = reg
	cfg.SetupFunc = func() error { setup = true; return nil }
	cfg.CleanupFunc = func() error { cleanup = true; return nil }

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := Run(ctx, &cfg); err != nil {
		t.Fatal(err)
	}

	if ctx.Err() != nil {
		t.Fatal("run did not return when the stream ended")
	}

	if !setup || !cleanup {
		t.Errorf("setup called: %v, cleanup called: %v", setup, cleanup)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(data, testBackend.data) {
		t.Errorf("expected %d bytes persisted, got %d", len(testBackend.data), len(data))
	}

	expected := `
# HELP voxcap_chunks_read_total Total number of sample chunks read from the device
# TYPE voxcap_chunks_read_total counter
voxcap_chunks_read_total 6
`

	err = testutil.GatherAndCompare(reg, strings.NewReader(expected), "voxcap_chunks_read_total")
	if err != nil {
		t.Error(err)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := NewZeroConfig()
	cfg.Bins = 0

	if err := Run(context.Background(), &cfg); err == nil {
		t.Fatal("expected an error")
	}
}

func TestRunUnknownBackend(t *testing.T) {
	cfg := NewZeroConfig()
	cfg.Backend = "no-such-backend"

	if err := Run(context.Background(), &cfg); err == nil {
		t.Fatal("expected an error")
	}
}
