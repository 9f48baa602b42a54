package main

import (
	"fmt"
	"io"

	"github.com/noriah/voxcap"
)

// numberWriter prints every frame as a line of magnitudes scaled to
// [0, 100].
type numberWriter struct {
	w          io.Writer
	invertDraw bool
	buf        []byte
}

var _ voxcap.Output = (*numberWriter)(nil)

func newNumberWriter(w io.Writer, invert bool) *numberWriter {
	return &numberWriter{
		w:          w,
		invertDraw: invert,
	}
}

func (nw *numberWriter) Draw(mags []float64, status voxcap.Status) error {
	nw.buf = nw.buf[:0]

	for xBar := range mags {
		xBin := xBar
		if nw.invertDraw {
			xBin = len(mags) - 1 - xBar
		}

		nw.buf = fmt.Appendf(nw.buf, "%6.2f ", mags[xBin]*100)
	}

	nw.buf = append(nw.buf, '\n')

	_, err := nw.w.Write(nw.buf)
	return err
}
