package recorder

import (
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/noriah/voxcap/input"
	"github.com/pkg/errors"
)

// capture is the capture loop of one run. The device read is the only
// blocking call and paces the loop.
func (s *Session) capture(r *run) {
	defer close(r.done)

	chunk := make([]int16, s.cfg.SampleSize)
	raw := make([]byte, len(chunk)*input.SampleBytes)

	lp := loop{
		Session: s,
		run:     r,
		anchor:  s.cfg.Clock(),
	}

	for !r.stop.Load() {
		n, err := r.device.Read(chunk)

		if n > 0 {
			lp.handle(chunk[:n], raw)
		}

		if err == nil {
			continue
		}

		if r.stop.Load() {
			return
		}

		if errors.Is(err, io.EOF) {
			s.log.Info("capture device reached the end of its stream")
		} else {
			s.cfg.Metrics.ReadError()
			s.log.Error("failed to read from device", slog.String("error", err.Error()))
		}

		go s.finish(r)
		return
	}
}

// loop is the state private to the capture goroutine.
type loop struct {
	*Session
	run *run

	anchor       time.Time // time of the last voiced chunk
	writeFailing bool
}

func (lp *loop) handle(chunk []int16, raw []byte) {
	start := time.Now()
	now := lp.cfg.Clock()

	frame, err := lp.run.proc.Process(chunk)

	lp.volume.Store(math.Float64bits(frame.Volume))

	if frame.Voiced {
		lp.anchor = now
	}

	lp.duration.Store(int64(now.Sub(lp.anchor)))

	if err != nil {
		lp.cfg.Metrics.ProcessError()
		lp.log.Error("failed to process chunk", slog.String("error", err.Error()))
	} else {
		lp.cfg.Metrics.Publish(lp.run.pub.offer(frame.Magnitudes))
	}

	lp.cfg.Metrics.ObserveChunk(frame.Voiced, frame.Volume, time.Since(start))

	lp.write(input.PutSamples(raw, chunk))
}

// write appends data to the sink. Failures are logged once per streak and
// never stop the loop.
func (lp *loop) write(data []byte) {
	if lp.run.sink == nil {
		return
	}

	n, err := lp.run.sink.Write(data)
	lp.cfg.Metrics.Wrote(n, err)

	switch {
	case err != nil && !lp.writeFailing:
		lp.writeFailing = true
		lp.log.Warn("failed to write output, continuing", slog.String("error", err.Error()))

	case err == nil && lp.writeFailing:
		lp.writeFailing = false
		lp.log.Info("output writes recovered")
	}
}
