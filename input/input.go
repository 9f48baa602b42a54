package input

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Device is an audio source a backend can open.
type Device interface {
	fmt.Stringer
}

// SessionConfig describes the stream a session reads.
type SessionConfig struct {
	Device     Device  // device to read from
	SampleRate float64 // samples per second
	SampleSize int     // samples per chunk
}

// Session is an open capture device yielding mono 16-bit chunks.
type Session interface {
	// Read blocks until dst is full or the stream ends. It returns the number
	// of samples written to dst. A short read is only returned with an error
	// or at the end of the stream.
	Read(dst []int16) (int, error)
	// Close releases the device. A blocked Read returns after Close.
	Close() error
}

// Authorizer decides whether capture is allowed right now.
type Authorizer interface {
	Authorized() bool
}

// AuthorizerFunc adapts a function to an Authorizer.
type AuthorizerFunc func() bool

// Authorized calls f.
func (f AuthorizerFunc) Authorized() bool {
	return f()
}

// AlwaysAuthorized grants capture every time.
var AlwaysAuthorized Authorizer = AuthorizerFunc(func() bool { return true })

// SampleBytes is the size of one sample on the wire.
const SampleBytes = 2

// PutSamples encodes samples as little-endian 16-bit values into dst, which
// must hold len(samples)*SampleBytes bytes. It returns the bytes written.
func PutSamples(dst []byte, samples []int16) []byte {
	dst = dst[:len(samples)*SampleBytes]
	for idx, s := range samples {
		binary.LittleEndian.PutUint16(dst[idx*SampleBytes:], uint16(s))
	}

	return dst
}

// DecodeSamples decodes little-endian 16-bit values from src into dst and
// returns the number of samples decoded.
func DecodeSamples(dst []int16, src []byte) int {
	count := len(src) / SampleBytes
	if count > len(dst) {
		count = len(dst)
	}

	for idx := 0; idx < count; idx++ {
		dst[idx] = int16(binary.LittleEndian.Uint16(src[idx*SampleBytes:]))
	}

	return count
}

// ReadChunk fills dst with little-endian samples from r using raw as scratch
// space. raw must hold len(dst)*SampleBytes bytes. A trailing odd byte of a
// short read is dropped.
func ReadChunk(r io.Reader, dst []int16, raw []byte) (int, error) {
	raw = raw[:len(dst)*SampleBytes]

	n, err := io.ReadFull(r, raw)
	count := DecodeSamples(dst, raw[:n])

	if err == io.ErrUnexpectedEOF {
		// a partial final chunk is still audio
		if count > 0 {
			return count, nil
		}
		err = io.EOF
	}

	return count, err
}
