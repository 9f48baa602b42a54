package processor

import (
	"math"
	"testing"

	"github.com/noriah/voxcap/dsp"
	"github.com/pkg/errors"
)

const BinSize = 2048

func toneChunk(freq, amp float64, size int) []int16 {
	chunk := make([]int16, size)
	for idx := range chunk {
		chunk[idx] = int16(amp * math.Sin(2*math.Pi*freq*float64(idx)/dsp.DefaultSampleRate))
	}
	return chunk
}

func newTestProcessor(t testing.TB) *Processor {
	proc, err := New(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return proc
}

func TestSilenceIsZero(t *testing.T) {
	proc := newTestProcessor(t)

	for i := 0; i < 10; i++ {
		frame, err := proc.Process(make([]int16, BinSize))
		if err != nil {
			t.Fatal(err)
		}

		if frame.Voiced {
			t.Fatal("silence reported as voiced")
		}

		if frame.Volume != dsp.MinDecibels {
			t.Errorf("expected volume floor, got %f", frame.Volume)
		}

		if len(frame.Magnitudes) != dsp.DefaultBinCount {
			t.Fatalf("expected %d magnitudes, got %d", dsp.DefaultBinCount, len(frame.Magnitudes))
		}

		for idx, v := range frame.Magnitudes {
			if v != 0 {
				t.Errorf("magnitude %d is %f during silence", idx, v)
			}
		}
	}
}

func TestVoicedOutputIsBounded(t *testing.T) {
	proc := newTestProcessor(t)

	for i := 0; i < 20; i++ {
		chunk := toneChunk(580, 12000, BinSize)
		if i%3 == 0 {
			chunk = make([]int16, BinSize)
		}

		frame, err := proc.Process(chunk)
		if err != nil {
			t.Fatal(err)
		}

		for idx, v := range frame.Magnitudes {
			if math.IsNaN(v) || v < 0 || v > 1 {
				t.Fatalf("chunk %d: magnitude %d out of range: %f", i, idx, v)
			}
		}
	}
}

func TestVoicedToneMoves(t *testing.T) {
	proc := newTestProcessor(t)

	frame, err := proc.Process(toneChunk(580, 12000, BinSize))
	if err != nil {
		t.Fatal(err)
	}

	if !frame.Voiced {
		t.Fatalf("loud tone not voiced, volume %f", frame.Volume)
	}

	peak := 0.0
	for _, v := range frame.Magnitudes {
		peak = math.Max(peak, v)
	}

	if peak != 1 {
		t.Errorf("expected a normalized peak of 1, got %v", frame.Magnitudes)
	}
}

func TestDecayAfterSound(t *testing.T) {
	proc := newTestProcessor(t)

	proc.Process(toneChunk(580, 12000, BinSize))

	// the averaged history keeps the tone alive for a few silent chunks.
	frame, _ := proc.Process(make([]int16, BinSize))
	if frame.Voiced {
		t.Fatal("silence reported as voiced")
	}

	for i := 0; i < dsp.DefaultAverageDepth+8; i++ {
		frame, _ = proc.Process(make([]int16, BinSize))
	}

	for idx, v := range frame.Magnitudes {
		if v > 1e-3 {
			t.Errorf("magnitude %d did not decay: %f", idx, v)
		}
	}
}

func TestShortChunk(t *testing.T) {
	proc := newTestProcessor(t)

	if _, err := proc.Process(toneChunk(580, 12000, 300)); err != nil {
		t.Errorf("short chunk: %v", err)
	}

	if _, err := proc.Process(nil); !errors.Is(err, dsp.ErrEmptyChunk) {
		t.Errorf("expected ErrEmptyChunk, got %v", err)
	}
}

func TestReset(t *testing.T) {
	proc := newTestProcessor(t)
	proc.Process(toneChunk(580, 12000, BinSize))

	if proc.Last() == nil {
		t.Fatal("expected a last vector")
	}

	proc.Reset()

	if proc.Last() != nil {
		t.Error("expected no last vector after reset")
	}
}

func TestNewRejectsBadBins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bins = 0

	if _, err := New(cfg); err == nil {
		t.Error("expected error for zero bins")
	}
}

func BenchmarkProcess(b *testing.B) {
	proc := newTestProcessor(b)
	chunk := toneChunk(580, 12000, BinSize)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		proc.Process(chunk)
	}
}

func TestGateBinsIsConservative(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GateStage = GateBins

	proc, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	// eight bins can never clear 12 times their own mean.
	frame, err := proc.Process(toneChunk(580, 12000, BinSize))
	if err != nil {
		t.Fatal(err)
	}

	if !frame.Voiced {
		t.Fatal("loud tone not voiced")
	}

	for idx, v := range frame.Magnitudes {
		if v != 0 {
			t.Errorf("magnitude %d passed the bin gate: %f", idx, v)
		}
	}
}
