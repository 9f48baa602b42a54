// Package portaudio captures the microphone through PortAudio. It needs cgo
// and the portaudio library, build with -tags portaudio. Without the tag the
// package registers nothing.
package portaudio
