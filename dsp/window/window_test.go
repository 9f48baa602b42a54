package window

import (
	"math"
	"testing"
)

func TestHannMatchesCoefficient(t *testing.T) {
	const size = 33

	buf := make([]float64, size)
	for i := range buf {
		buf[i] = 1
	}

	Hann(buf)

	for i, v := range buf {
		if want := HannCoefficient(i, size); math.Abs(v-want) > 1e-12 {
			t.Errorf("index %d: expected %f, got %f", i, want, v)
		}
	}

	if buf[0] > 1e-12 || buf[size-1] > 1e-12 {
		t.Errorf("expected zero edges, got %f and %f", buf[0], buf[size-1])
	}

	if math.Abs(buf[size/2]-1) > 1e-12 {
		t.Errorf("expected unit center, got %f", buf[size/2])
	}
}

func TestHannCoefficientDegenerate(t *testing.T) {
	if got := HannCoefficient(0, 1); got != 1 {
		t.Errorf("expected 1 for single value window, got %f", got)
	}
}
