package dsp

import "github.com/pkg/errors"

// errors
var (
	// ErrEmptyChunk is returned when a transform is asked to run on no samples.
	ErrEmptyChunk = errors.New("empty sample chunk")
	// ErrLengthMismatch is returned when vectors of different lengths are mixed.
	ErrLengthMismatch = errors.New("magnitude vector length mismatch")
)
